package auth

import (
	"context"
	"time"

	"github.com/samber/oops"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/commit"
	"sascheck/internal/protocol/frame"
	"sascheck/internal/protocol/fsm"
	"sascheck/internal/protocol/sas"
)

// DefaultRetryBackoff spaces receiver commit retries while a live link is down.
const DefaultRetryBackoff = 250 * time.Millisecond

// Timeouts bounds each waiting phase. Zero disables the bound.
type Timeouts struct {
	WaitCommit  time.Duration
	WaitOffer   time.Duration
	WaitReveal  time.Duration
	SAS         time.Duration // human decision
	PeerConfirm time.Duration // live only: peer's rcvconfirm after local accept
}

// DefaultTimeouts returns the table for policy. Durable sessions never time
// out while waiting on the network since the peer may be offline for hours.
func DefaultTimeouts(policy domain.Policy) Timeouts {
	if policy == domain.PolicyDurable {
		return Timeouts{SAS: 5 * time.Minute}
	}
	return Timeouts{
		WaitCommit:  15 * time.Second,
		WaitOffer:   15 * time.Second,
		WaitReveal:  15 * time.Second,
		SAS:         2 * time.Minute,
		PeerConfirm: 30 * time.Second,
	}
}

// For returns the window of phase.
func (t Timeouts) For(phase fsm.State) time.Duration {
	switch phase {
	case fsm.WaitCommit:
		return t.WaitCommit
	case fsm.WaitOffer:
		return t.WaitOffer
	case fsm.WaitReveal:
		return t.WaitReveal
	case fsm.SASConfirm:
		return t.SAS
	}
	return 0
}

// SessionCtx identifies one authentication run.
type SessionCtx struct {
	RoomID    string
	SessionID string
	Policy    domain.Policy
	Clock     func() time.Time
}

// Now reads the session clock.
func (s SessionCtx) Now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

// Hooks are the caller's view of a run. Every hook except WaitConfirm is
// optional and is called from the run goroutine, so it must not block.
type Hooks struct {
	// WaitConfirm asks the human whether both screens show code. It runs on
	// its own goroutine and ctx is cancelled when the run ends.
	WaitConfirm func(ctx context.Context, code string) (bool, error)

	OnState       func(fsm.Transition)
	OnSAS         func(code string)
	OnSASHash     func(hexHash string)
	OnPeerConfirm func(frame.Frame)
	OnDone        func(Result)
	OnError       func(error)
}

// Options configures a Sender or Receiver.
type Options struct {
	RoomID    string
	SessionID string
	Policy    domain.Policy
	Algs      domain.Algs

	// SendMsg is the sender's payload (msgS); RecvMsg the receiver's (msgR).
	SendMsg []byte
	RecvMsg []byte

	// RecvMeta: the receiver advertises it in its commit; the sender treats
	// it as the expected value and rejects a commit that disagrees.
	RecvMeta *domain.PeerMeta
	// SendMeta: the receiver checks SendMeta.VK against the offered msgS.
	SendMeta *domain.PeerMeta

	// Timeouts overrides DefaultTimeouts(Policy) when non-nil.
	Timeouts *Timeouts
	Digits   int

	RetryBackoff time.Duration
	// LinkFallback delays the kickoff fallback on live links. Zero fires on
	// the next tick; negative waits for the link to come up.
	LinkFallback time.Duration
	Clock        func() time.Time
}

// Result is reported once a run reaches READY.
type Result struct {
	Role      domain.Role
	State     fsm.State
	RoomID    string
	SessionID string
	SAS       string
	SASHash   string
	// PeerMsg is msgR on the sender and msgS on the receiver.
	PeerMsg     []byte
	CompletedAt time.Time
}

func (o *Options) normalize(role domain.Role, hooks Hooks) error {
	bad := func(format string, args ...any) error {
		return domain.NewError(domain.CodeBadParam, "new "+string(role), oops.Errorf(format, args...))
	}
	if o.RoomID == "" {
		return bad("room id is required")
	}
	if o.SessionID == "" {
		return bad("session id is required")
	}
	if o.Policy != domain.PolicyLive && o.Policy != domain.PolicyDurable {
		return domain.NewError(domain.CodeBadParam, "new "+string(role), domain.ErrUnknownPolicy)
	}
	if hooks.WaitConfirm == nil {
		return bad("WaitConfirm hook is required")
	}
	switch role {
	case domain.RoleSender:
		if len(o.SendMsg) == 0 {
			return bad("sender message is empty")
		}
	case domain.RoleReceiver:
		if len(o.RecvMsg) == 0 {
			return bad("receiver message is empty")
		}
		if _, err := commit.ParseAlg(o.Algs.Commit); err != nil {
			return err
		}
	}
	if o.Algs.Commit == "" {
		o.Algs.Commit = string(commit.SHA3_256)
	}
	if o.Digits == 0 {
		o.Digits = sas.DefaultDigits
	}
	if o.Digits < 1 || o.Digits > sas.MaxDigits {
		return bad("digits must be in [1,%d], got %d", sas.MaxDigits, o.Digits)
	}
	if o.Timeouts == nil {
		t := DefaultTimeouts(o.Policy)
		o.Timeouts = &t
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	return nil
}

func (o Options) session() SessionCtx {
	return SessionCtx{RoomID: o.RoomID, SessionID: o.SessionID, Policy: o.Policy, Clock: o.Clock}
}
