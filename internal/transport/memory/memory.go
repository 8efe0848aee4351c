package memory

import (
	"sync"

	"github.com/go-i2p/logger"

	"sascheck/internal/domain"
)

var log = logger.GetGoI2PLogger()

// Tamper rewrites a frame sent by the endpoint named from. Returning nil drops it.
type Tamper func(from string, frame []byte) []byte

type config struct {
	tamper Tamper
}

// Option configures a Pipe.
type Option func(*config)

// WithTamper installs fn on both directions of the pipe.
func WithTamper(fn Tamper) Option {
	return func(c *config) { c.tamper = fn }
}

// link is the state shared by both ends of a pipe.
type link struct {
	mu   sync.Mutex
	live bool
	up   bool
}

// Endpoint is one end of a Pipe.
type Endpoint struct {
	name   string
	link   *link
	peer   *Endpoint
	tamper Tamper

	deliverMu sync.Mutex // serialises delivery so frames arrive in send order

	mu      sync.Mutex
	closed  bool
	nextID  int
	msgSubs map[int]func([]byte)
	upSubs  map[int]func()
	dnSubs  map[int]func()
	clSubs  map[int]func(error)
	backlog [][]byte
}

var (
	_ domain.Transport     = (*Endpoint)(nil)
	_ domain.LinkNotifier  = (*Endpoint)(nil)
	_ domain.CloseNotifier = (*Endpoint)(nil)
)

// Pipe returns two connected endpoints named "a" and "b".
func Pipe(policy domain.Policy, opts ...Option) (*Endpoint, *Endpoint) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	l := &link{live: policy == domain.PolicyLive}
	l.up = !l.live
	a := newEndpoint("a", l, cfg.tamper)
	b := newEndpoint("b", l, cfg.tamper)
	a.peer, b.peer = b, a
	return a, b
}

func newEndpoint(name string, l *link, t Tamper) *Endpoint {
	return &Endpoint{
		name:    name,
		link:    l,
		tamper:  t,
		msgSubs: map[int]func([]byte){},
		upSubs:  map[int]func(){},
		dnSubs:  map[int]func(){},
		clSubs:  map[int]func(error){},
	}
}

// Name returns "a" or "b".
func (e *Endpoint) Name() string { return e.name }

// Connect brings a live pipe up and notifies both ends.
func (e *Endpoint) Connect() { e.setUp(true) }

// Disconnect takes a live pipe down and notifies both ends.
func (e *Endpoint) Disconnect() { e.setUp(false) }

func (e *Endpoint) setUp(up bool) {
	e.link.mu.Lock()
	if !e.link.live || e.link.up == up {
		e.link.mu.Unlock()
		return
	}
	e.link.up = up
	e.link.mu.Unlock()

	log.WithFields(logger.Fields{"at": "(Endpoint) setUp", "up": up}).Debug("memory link state changed")
	for _, ep := range []*Endpoint{e, e.peer} {
		if up {
			for _, fn := range ep.snapshotUp() {
				fn()
			}
		} else {
			for _, fn := range ep.snapshotDown() {
				fn()
			}
		}
	}
}

// Connected reports whether frames can currently flow.
func (e *Endpoint) Connected() bool {
	e.link.mu.Lock()
	defer e.link.mu.Unlock()
	return e.link.up
}

// Send delivers frame to the peer.
func (e *Endpoint) Send(frame []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return domain.ErrTransportClosed
	}
	if !e.Connected() {
		return domain.ErrNotConnected
	}

	out := append([]byte(nil), frame...)
	if e.tamper != nil {
		if out = e.tamper(e.name, out); out == nil {
			return nil
		}
	}
	return e.peer.deliver(out)
}

func (e *Endpoint) deliver(frame []byte) error {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrTransportClosed
	}
	if len(e.msgSubs) == 0 {
		e.backlog = append(e.backlog, frame)
		e.mu.Unlock()
		return nil
	}
	subs := make([]func([]byte), 0, len(e.msgSubs))
	for _, fn := range e.msgSubs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn(frame)
	}
	return nil
}

// OnMessage registers fn and replays any frames that arrived while nobody
// was listening.
func (e *Endpoint) OnMessage(fn func([]byte)) func() {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.msgSubs[id] = fn
	backlog := e.backlog
	e.backlog = nil
	e.mu.Unlock()

	for _, f := range backlog {
		fn(f)
	}
	return func() {
		e.mu.Lock()
		delete(e.msgSubs, id)
		e.mu.Unlock()
	}
}

// OnUp registers fn for link-up events.
func (e *Endpoint) OnUp(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.upSubs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.upSubs, id)
		e.mu.Unlock()
	}
}

// OnDown registers fn for link-down events.
func (e *Endpoint) OnDown(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.dnSubs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.dnSubs, id)
		e.mu.Unlock()
	}
}

// OnClose registers fn, called once when the peer closes its end.
func (e *Endpoint) OnClose(fn func(error)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.clSubs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.clSubs, id)
		e.mu.Unlock()
	}
}

// Close shuts this end and tells the peer. Closing twice is a no-op.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	for _, fn := range e.peer.snapshotClose() {
		fn(domain.ErrTransportClosed)
	}
	return nil
}

func (e *Endpoint) snapshotUp() []func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]func(), 0, len(e.upSubs))
	for _, fn := range e.upSubs {
		out = append(out, fn)
	}
	return out
}

func (e *Endpoint) snapshotDown() []func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]func(), 0, len(e.dnSubs))
	for _, fn := range e.dnSubs {
		out = append(out, fn)
	}
	return out
}

func (e *Endpoint) snapshotClose() []func(error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]func(error), 0, len(e.clSubs))
	for _, fn := range e.clSubs {
		out = append(out, fn)
	}
	return out
}
