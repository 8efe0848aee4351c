package relay

import (
	"context"
	"sync"
	"time"

	"github.com/go-i2p/logger"

	"sascheck/internal/domain"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultRetryBackoff = time.Second
	drainTimeout        = 5 * time.Second
)

// MailboxOption tunes a Mailbox.
type MailboxOption func(*Mailbox)

// WithPollInterval sets how often the inbound mailbox is fetched.
func WithPollInterval(d time.Duration) MailboxOption {
	return func(m *Mailbox) { m.poll = d }
}

// WithRetryBackoff sets the wait between failed uploads.
func WithRetryBackoff(d time.Duration) MailboxOption {
	return func(m *Mailbox) { m.backoff = d }
}

// Mailbox is a durable transport for one role in one room. It writes to the
// peer role's mailbox and reads its own.
type Mailbox struct {
	client  *Client
	room    string
	self    domain.Role
	poll    time.Duration
	backoff time.Duration

	mu      sync.Mutex
	closed  bool
	outq    [][]byte
	subs    map[int]func([]byte)
	nextID  int
	backlog [][]byte

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ domain.Transport = (*Mailbox)(nil)

// NewMailbox starts the upload and poll loops for role self in room.
func NewMailbox(client *Client, room string, self domain.Role, opts ...MailboxOption) *Mailbox {
	m := &Mailbox{
		client:  client,
		room:    room,
		self:    self,
		poll:    DefaultPollInterval,
		backoff: DefaultRetryBackoff,
		subs:    map[int]func([]byte){},
		wake:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.wg.Add(2)
	go m.flushLoop()
	go m.pollLoop()
	return m
}

// Send queues frame for upload. It only fails once the mailbox is closed.
func (m *Mailbox) Send(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrTransportClosed
	}
	m.outq = append(m.outq, append([]byte(nil), frame...))
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// OnMessage registers fn and replays frames fetched before anyone listened.
func (m *Mailbox) OnMessage(fn func([]byte)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	backlog := m.backlog
	m.backlog = nil
	m.mu.Unlock()

	for _, f := range backlog {
		fn(f)
	}
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close stops polling and makes one last attempt to upload queued frames.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for m.flushOne(ctx) {
	}
	return nil
}

// Pending reports how many frames await upload.
func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outq)
}

func (m *Mailbox) flushLoop() {
	defer m.wg.Done()
	for {
		for m.flushOne(m.ctx) {
		}
		wait := m.backoff
		if m.Pending() == 0 {
			wait = time.Hour
		}
		select {
		case <-m.ctx.Done():
			return
		case <-m.wake:
		case <-time.After(wait):
		}
	}
}

// flushOne uploads the head of the queue. It reports whether it made progress.
func (m *Mailbox) flushOne(ctx context.Context) bool {
	m.mu.Lock()
	if len(m.outq) == 0 {
		m.mu.Unlock()
		return false
	}
	head := m.outq[0]
	m.mu.Unlock()

	seq, err := m.client.Post(ctx, m.room, string(m.self.Peer()), head)
	if err != nil {
		if ctx.Err() == nil {
			log.WithFields(logger.Fields{"at": "(Mailbox) flushOne", "room": m.room, "role": m.self}).
				WithError(err).Warn("relay upload failed, will retry")
		}
		return false
	}
	m.mu.Lock()
	m.outq = m.outq[1:]
	m.mu.Unlock()
	log.WithFields(logger.Fields{"at": "(Mailbox) flushOne", "room": m.room, "seq": seq}).Debug("frame uploaded")
	return true
}

func (m *Mailbox) pollLoop() {
	defer m.wg.Done()
	var after uint64
	t := time.NewTicker(m.poll)
	defer t.Stop()
	for {
		after = m.pollOnce(after)
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (m *Mailbox) pollOnce(after uint64) uint64 {
	entries, err := m.client.Fetch(m.ctx, m.room, string(m.self), after)
	if err != nil {
		if m.ctx.Err() == nil {
			log.WithFields(logger.Fields{"at": "(Mailbox) pollOnce", "room": m.room, "role": m.self}).
				WithError(err).Debug("relay poll failed")
		}
		return after
	}
	if len(entries) == 0 {
		return after
	}
	for _, e := range entries {
		m.deliver(e.Frame)
		after = e.Seq
	}
	if err := m.client.Ack(m.ctx, m.room, string(m.self), after); err != nil && m.ctx.Err() == nil {
		log.WithFields(logger.Fields{"at": "(Mailbox) pollOnce", "room": m.room}).WithError(err).Debug("relay ack failed")
	}
	return after
}

func (m *Mailbox) deliver(frame []byte) {
	m.mu.Lock()
	if len(m.subs) == 0 {
		m.backlog = append(m.backlog, frame)
		m.mu.Unlock()
		return
	}
	subs := make([]func([]byte), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(frame)
	}
}
