package ws

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-i2p/logger"
	"github.com/gorilla/websocket"
	"github.com/samber/oops"

	"sascheck/internal/domain"
)

var log = logger.GetGoI2PLogger()

const (
	// DefaultPath is where Listen accepts the peer.
	DefaultPath = "/sascheck"

	dialBackoff  = 500 * time.Millisecond
	writeWait    = 10 * time.Second
	maxFrameSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Link is one end of a peer-to-peer websocket.
type Link struct {
	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	wasUp    bool
	nextID   int
	msgSubs  map[int]func([]byte)
	upSubs   map[int]func()
	downSubs map[int]func()
	clSubs   map[int]func(error)
	backlog  [][]byte

	srv    *http.Server
	addr   net.Addr
	path   string
	cancel context.CancelFunc
}

var (
	_ domain.Transport     = (*Link)(nil)
	_ domain.LinkNotifier  = (*Link)(nil)
	_ domain.CloseNotifier = (*Link)(nil)
)

func newLink() *Link {
	return &Link{
		msgSubs:  map[int]func([]byte){},
		upSubs:   map[int]func(){},
		downSubs: map[int]func(){},
		clSubs:   map[int]func(error){},
	}
}

// Listen serves path on addr and accepts exactly one peer. Later peers are
// turned away with 409 Conflict.
func Listen(addr, path string) (*Link, error) {
	if path == "" {
		path = DefaultPath
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, oops.Wrapf(err, "listening on %s", addr)
	}
	l := newLink()
	l.addr, l.path = ln.Addr(), path

	mux := http.NewServeMux()
	mux.HandleFunc(path, l.accept)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithFields(logger.Fields{"at": "Listen", "addr": l.addr.String()}).WithError(err).Error("link server stopped")
		}
	}()
	log.WithFields(logger.Fields{"at": "Listen", "addr": l.addr.String(), "path": path}).Debug("waiting for peer")
	return l, nil
}

// URL is the address a peer should Dial. Only set on listening links.
func (l *Link) URL() string {
	if l.addr == nil {
		return ""
	}
	return "ws://" + l.addr.String() + l.path
}

func (l *Link) accept(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	busy := l.conn != nil || l.closed || l.wasUp
	l.mu.Unlock()
	if busy {
		http.Error(w, "peer already connected", http.StatusConflict)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(logger.Fields{"at": "(Link) accept", "remote": r.RemoteAddr}).WithError(err).Warn("upgrade failed")
		return
	}
	l.attach(conn)
}

// Dial connects to url in the background, retrying until it succeeds, ctx
// ends or the link is closed.
func Dial(ctx context.Context, url string) *Link {
	l := newLink()
	ctx, l.cancel = context.WithCancel(ctx)
	go l.dialLoop(ctx, url)
	return l
}

func (l *Link) dialLoop(ctx context.Context, url string) {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			l.attach(conn)
			return
		}
		log.WithFields(logger.Fields{"at": "(Link) dialLoop", "url": url}).WithError(err).Debug("dial failed, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(dialBackoff):
		}
	}
}

func (l *Link) attach(conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)
	l.mu.Lock()
	if l.closed || l.conn != nil {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.conn = conn
	l.wasUp = true
	ups := snapshot(l.upSubs)
	l.mu.Unlock()

	log.WithFields(logger.Fields{"at": "(Link) attach", "remote": conn.RemoteAddr().String()}).Debug("link up")
	for _, fn := range ups {
		fn()
	}
	go l.readLoop(conn)
}

func (l *Link) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			l.detach(conn, err)
			return
		}
		l.deliver(data)
	}
}

func (l *Link) deliver(data []byte) {
	l.mu.Lock()
	if len(l.msgSubs) == 0 {
		l.backlog = append(l.backlog, data)
		l.mu.Unlock()
		return
	}
	subs := snapshot(l.msgSubs)
	l.mu.Unlock()
	for _, fn := range subs {
		fn(data)
	}
}

// detach runs once the connection is gone. A link is not re-established
// after it has been up, so the peer counts as closed.
func (l *Link) detach(conn *websocket.Conn, cause error) {
	l.mu.Lock()
	if l.conn != conn {
		l.mu.Unlock()
		return
	}
	l.conn = nil
	closedLocally := l.closed
	downs := snapshot(l.downSubs)
	closes := snapshot(l.clSubs)
	l.mu.Unlock()

	_ = conn.Close()
	if !websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !closedLocally {
		log.WithFields(logger.Fields{"at": "(Link) detach"}).WithError(cause).Warn("link dropped")
	}
	for _, fn := range downs {
		fn()
	}
	if closedLocally {
		return
	}
	for _, fn := range closes {
		fn(domain.ErrTransportClosed)
	}
}

// Connected reports whether a peer is attached.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Send writes frame as one binary message.
func (l *Link) Send(frame []byte) error {
	l.mu.Lock()
	conn, closed, wasUp := l.conn, l.closed, l.wasUp
	l.mu.Unlock()
	switch {
	case closed:
		return domain.ErrTransportClosed
	case conn == nil && wasUp:
		return domain.ErrTransportClosed
	case conn == nil:
		return domain.ErrNotConnected
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return oops.Wrapf(err, "setting write deadline")
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return oops.Wrapf(err, "writing frame")
	}
	return nil
}

// OnMessage registers fn and replays frames that arrived before anyone
// was listening.
func (l *Link) OnMessage(fn func([]byte)) func() {
	l.mu.Lock()
	id := l.add()
	l.msgSubs[id] = fn
	backlog := l.backlog
	l.backlog = nil
	l.mu.Unlock()

	for _, f := range backlog {
		fn(f)
	}
	return func() {
		l.mu.Lock()
		delete(l.msgSubs, id)
		l.mu.Unlock()
	}
}

func (l *Link) OnUp(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.add()
	l.upSubs[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.upSubs, id)
		l.mu.Unlock()
	}
}

func (l *Link) OnDown(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.add()
	l.downSubs[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.downSubs, id)
		l.mu.Unlock()
	}
}

func (l *Link) OnClose(fn func(error)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.add()
	l.clSubs[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.clSubs, id)
		l.mu.Unlock()
	}
}

// add must be called with l.mu held.
func (l *Link) add() int {
	id := l.nextID
	l.nextID++
	return id
}

// Close says goodbye to the peer and releases the connection and, on the
// listening side, the server.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conn := l.conn
	l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	if conn != nil {
		l.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		l.writeMu.Unlock()
		_ = conn.Close()
	}
	if l.srv != nil {
		return l.srv.Close()
	}
	return nil
}

func snapshot[T any](m map[int]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
