package relay

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-i2p/logger"
	"golang.org/x/time/rate"

	"sascheck/internal/domain"
)

var log = logger.GetGoI2PLogger()

const (
	// MaxFrameSize caps a posted frame.
	MaxFrameSize = 64 << 10
	// MaxBatch caps frames returned by one GET.
	MaxBatch = 64
)

// Limits configures per-client rate limiting. A zero Rate disables it.
type Limits struct {
	Rate  rate.Limit
	Burst int
}

// DefaultLimits allows a steady poll plus bursts around a handshake.
var DefaultLimits = Limits{Rate: 20, Burst: 40}

// Server serves the mailbox API over a Store.
type Server struct {
	store  *Store
	limits Limits

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	mux *http.ServeMux
}

// NewServer returns an http.Handler for store.
func NewServer(store *Store, limits Limits) *Server {
	s := &Server{store: store, limits: limits, limiters: map[string]*rate.Limiter{}}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /rooms/{room}/{role}", s.handlePost)
	s.mux.HandleFunc("GET /rooms/{room}/{role}", s.handleGet)
	s.mux.HandleFunc("POST /rooms/{room}/{role}/ack", s.handleAck)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	if !s.allow(r) {
		http.Error(rec, "rate limited", http.StatusTooManyRequests)
	} else {
		s.mux.ServeHTTP(rec, r)
	}
	log.WithFields(logger.Fields{
		"at":       "(Server) ServeHTTP",
		"method":   r.Method,
		"path":     r.URL.Path,
		"remote":   r.RemoteAddr,
		"status":   rec.status,
		"bytes":    rec.bytes,
		"duration": time.Since(start).String(),
	}).Debug("request")
}

func (s *Server) allow(r *http.Request) bool {
	if s.limits.Rate == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	s.mu.Lock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(s.limits.Rate, s.limits.Burst)
		s.limiters[host] = l
	}
	s.mu.Unlock()
	return l.Allow()
}

func mailbox(w http.ResponseWriter, r *http.Request) (room, role string, ok bool) {
	room, role = r.PathValue("room"), r.PathValue("role")
	if room == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return "", "", false
	}
	switch domain.Role(role) {
	case domain.RoleSender, domain.RoleReceiver:
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return "", "", false
	}
	return room, role, true
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	room, role, ok := mailbox(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFrameSize))
	if err != nil {
		http.Error(w, "frame too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty frame", http.StatusBadRequest)
		return
	}
	seq, err := s.store.Append(room, role, body)
	if err != nil {
		s.fail(w, "(Server) handlePost", err)
		return
	}
	writeJSON(w, struct {
		Seq uint64 `json:"seq"`
	}{seq})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	room, role, ok := mailbox(w, r)
	if !ok {
		return
	}
	var after uint64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "bad after", http.StatusBadRequest)
			return
		}
		after = n
	}
	entries, err := s.store.Since(room, role, after, MaxBatch)
	if err != nil {
		s.fail(w, "(Server) handleGet", err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, entries)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	room, role, ok := mailbox(w, r)
	if !ok {
		return
	}
	var req struct {
		UpTo uint64 `json:"upTo"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		http.Error(w, "bad ack", http.StatusBadRequest)
		return
	}
	n, err := s.store.Ack(room, role, req.UpTo)
	if err != nil {
		s.fail(w, "(Server) handleAck", err)
		return
	}
	writeJSON(w, struct {
		Dropped int `json:"dropped"`
	}{n})
}

func (s *Server) fail(w http.ResponseWriter, at string, err error) {
	log.WithFields(logger.Fields{"at": at}).WithError(err).Error("store failure")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
