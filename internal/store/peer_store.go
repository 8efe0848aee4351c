package store

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/oops"

	"sascheck/internal/domain"
)

const peersFilename = "peers.json"

// PeerFileStore keeps verified peers in a single JSON file.
type PeerFileStore struct {
	path string
	mu   sync.Mutex
}

// NewPeerFileStore returns a PeerFileStore rooted at dir.
func NewPeerFileStore(dir string) *PeerFileStore {
	return &PeerFileStore{path: filepath.Join(dir, peersFilename)}
}

func (s *PeerFileStore) load() (map[domain.Fingerprint]domain.VerifiedPeer, error) {
	peers := map[domain.Fingerprint]domain.VerifiedPeer{}
	if err := readJSON(s.path, &peers); err != nil {
		return nil, oops.Wrapf(err, "reading %s", s.path)
	}
	return peers, nil
}

// SavePeer records p, replacing any earlier record for its fingerprint.
func (s *PeerFileStore) SavePeer(p domain.VerifiedPeer) error {
	if p.Fingerprint == "" {
		return oops.Errorf("verified peer has no fingerprint")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, err := s.load()
	if err != nil {
		return err
	}
	peers[p.Fingerprint] = p
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return oops.Wrapf(err, "creating %s", filepath.Dir(s.path))
	}
	return writeJSON(s.path, peers, 0o600)
}

// LoadPeer returns the record for fp, if any.
func (s *PeerFileStore) LoadPeer(fp domain.Fingerprint) (domain.VerifiedPeer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, err := s.load()
	if err != nil {
		return domain.VerifiedPeer{}, false, err
	}
	p, ok := peers[fp]
	return p, ok, nil
}

// ListPeers returns all records, most recently verified first.
func (s *PeerFileStore) ListPeers() ([]domain.VerifiedPeer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.VerifiedPeer, 0, len(peers))
	for _, p := range peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VerifiedUTC != out[j].VerifiedUTC {
			return out[i].VerifiedUTC > out[j].VerifiedUTC
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out, nil
}

var _ domain.PeerStore = (*PeerFileStore)(nil)
