package relay

import (
	"encoding/binary"
	"time"

	"github.com/samber/oops"
	bbolt "go.etcd.io/bbolt"
)

var roomsBucket = []byte("rooms")

// Entry is one stored frame.
type Entry struct {
	Seq   uint64 `json:"seq"`
	Frame []byte `json:"frame"`
}

// Store persists mailboxes in bbolt. Each mailbox is a nested bucket keyed
// by big-endian sequence numbers.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, oops.Wrapf(err, "opening relay db %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(roomsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, oops.Wrapf(err, "creating rooms bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func mailboxKey(room, role string) []byte {
	return []byte(room + "\x00" + role)
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// Append stores frame at the end of the mailbox and returns its sequence.
func (s *Store) Append(room, role string, frame []byte) (uint64, error) {
	var seq uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		mb, err := tx.Bucket(roomsBucket).CreateBucketIfNotExists(mailboxKey(room, role))
		if err != nil {
			return err
		}
		if seq, err = mb.NextSequence(); err != nil {
			return err
		}
		return mb.Put(seqKey(seq), frame)
	})
	if err != nil {
		return 0, oops.Wrapf(err, "appending to %s/%s", room, role)
	}
	return seq, nil
}

// Since returns up to limit frames with sequence greater than after.
// limit <= 0 means no limit.
func (s *Store) Since(room, role string, after uint64, limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(roomsBucket).Bucket(mailboxKey(room, role))
		if mb == nil {
			return nil
		}
		c := mb.Cursor()
		for k, v := c.Seek(seqKey(after + 1)); k != nil; k, v = c.Next() {
			out = append(out, Entry{
				Seq:   binary.BigEndian.Uint64(k),
				Frame: append([]byte(nil), v...),
			})
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, oops.Wrapf(err, "reading %s/%s", room, role)
	}
	return out, nil
}

// Ack deletes frames with sequence <= upTo and reports how many went.
func (s *Store) Ack(room, role string, upTo uint64) (int, error) {
	n := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(roomsBucket).Bucket(mailboxKey(room, role))
		if mb == nil {
			return nil
		}
		var doomed [][]byte
		c := mb.Cursor()
		for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= upTo; k, _ = c.Next() {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		for _, k := range doomed {
			if err := mb.Delete(k); err != nil {
				return err
			}
		}
		n = len(doomed)
		return nil
	})
	if err != nil {
		return 0, oops.Wrapf(err, "acking %s/%s", room, role)
	}
	return n, nil
}
