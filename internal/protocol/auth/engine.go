package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/frame"
	"sascheck/internal/protocol/fsm"
	"sascheck/internal/protocol/sas"
	"sascheck/internal/util/memzero"
)

var log = logger.GetGoI2PLogger()

// engine is the machinery shared by Sender and Receiver. Everything below
// except Close and the mailbox is touched only by the run goroutine.
type engine struct {
	role  domain.Role
	t     domain.Transport
	opts  Options
	sess  SessionCtx
	hooks Hooks

	box     *mailbox
	m       *fsm.Machine
	timer   *PhaseTimer
	started atomic.Bool
	closing chan struct{}
	closeMu sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	kickedOff bool
	pending   [][]byte
	seen      map[frame.Type]frame.Frame
	lastSent  *frame.Frame
	handlers  map[frame.Type]func(frame.Frame) error
	onKickoff func() error

	code           sas.Result
	peerMsg        []byte
	localConfirmed bool
	peerConfirmed  bool

	secrets  [][]byte
	cleanups []func()

	done   bool
	result Result
	err    error
}

func newEngine(role domain.Role, t domain.Transport, opts Options, hooks Hooks) (*engine, error) {
	if t == nil {
		return nil, domain.NewError(domain.CodeBadParam, "new "+string(role), oops.Errorf("transport is nil"))
	}
	if err := opts.normalize(role, hooks); err != nil {
		return nil, err
	}
	e := &engine{
		role:    role,
		t:       t,
		opts:    opts,
		sess:    opts.session(),
		hooks:   hooks,
		box:     newMailbox(),
		m:       fsm.New(role),
		closing: make(chan struct{}),
		seen:    map[frame.Type]frame.Frame{},
	}
	e.timer = NewPhaseTimer(opts.Timeouts.For, e.box.put, e.resendLast, e.onTimeout)
	return e, nil
}

func (e *engine) fields(at string, extra ...logger.Fields) logger.Fields {
	f := logger.Fields{
		"at":      at,
		"role":    e.role,
		"room":    e.sess.RoomID,
		"session": e.sess.SessionID,
		"state":   e.m.State(),
	}
	for _, x := range extra {
		for k, v := range x {
			f[k] = v
		}
	}
	return f
}

// run drives the actor loop until a terminal state.
func (e *engine) run(ctx context.Context) (Result, error) {
	if !e.started.CompareAndSwap(false, true) {
		return Result{}, domain.NewError(domain.CodeBadParam, "run "+string(e.role), oops.Errorf("already started"))
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	defer e.teardown()

	unsubMsg := e.t.OnMessage(func(raw []byte) {
		b := append([]byte(nil), raw...)
		e.box.put(func() { e.onRaw(b) })
	})
	defer unsubMsg()
	if cn, ok := e.t.(domain.CloseNotifier); ok {
		unsubClose := cn.OnClose(func(err error) {
			e.box.put(func() { e.onTransportClosed(err) })
		})
		defer unsubClose()
	}
	life := StartLifecycle(e.t, e.sess.Policy, e.opts.LinkFallback, func() {
		e.box.put(e.kickoff)
	})
	defer life.Stop()

	for !e.done {
		select {
		case <-e.ctx.Done():
			e.fail(fsm.EventError, domain.CodeCanceled, "run", e.ctx.Err())
		case <-e.closing:
			e.fail(fsm.EventError, domain.CodeCanceled, "run", oops.Errorf("closed by caller"))
		case <-e.box.ready():
			for _, fn := range e.box.drain() {
				if e.done {
					break
				}
				fn()
			}
		}
	}
	if e.err != nil {
		return Result{}, e.err
	}
	return e.result, nil
}

// close asks a running engine to stop.
func (e *engine) close() {
	e.closeMu.Do(func() { close(e.closing) })
}

func (e *engine) teardown() {
	e.timer.Clear()
	for _, fn := range e.cleanups {
		fn()
	}
	if e.cancel != nil {
		e.cancel()
	}
	memzero.All(e.secrets...)
	if e.m.State() == fsm.Mallory {
		if err := e.t.Close(); err != nil {
			log.WithFields(e.fields("(engine) teardown")).WithError(err).Warn("closing transport after authentication failure")
		}
	}
}

func (e *engine) kickoff() {
	if e.done || e.kickedOff {
		return
	}
	e.kickedOff = true
	log.WithFields(e.fields("(engine) kickoff")).Debug("kickoff")
	if err := e.onKickoff(); err != nil {
		e.failWith(err)
		return
	}
	queued := e.pending
	e.pending = nil
	for _, raw := range queued {
		if e.done {
			return
		}
		e.onRaw(raw)
	}
}

func (e *engine) onRaw(raw []byte) {
	if e.done {
		return
	}
	if !e.kickedOff {
		e.pending = append(e.pending, raw)
		return
	}
	f, err := frame.Decode(raw)
	if err != nil {
		e.failWith(err)
		return
	}
	if f.SessionID != e.sess.SessionID {
		log.WithFields(e.fields("(engine) onRaw", logger.Fields{"frame": f.Type, "frame_session": f.SessionID})).
			Warn("dropping frame for another session")
		return
	}
	if prev, ok := e.seen[f.Type]; ok {
		if prev.Equal(f) {
			log.WithFields(e.fields("(engine) onRaw", logger.Fields{"frame": f.Type})).Debug("ignoring duplicate frame")
			return
		}
		e.fail(fsm.EventError, domain.CodeProtocol, "receive "+string(f.Type),
			oops.Errorf("conflicting duplicate %s frame", f.Type))
		return
	}
	e.seen[f.Type] = f

	h, ok := e.handlers[f.Type]
	if !ok {
		e.fail(fsm.EventError, domain.CodeProtocol, "receive "+string(f.Type),
			oops.Errorf("%s does not accept %s frames", e.role, f.Type))
		return
	}
	if err := h(f); err != nil {
		e.failWith(err)
	}
}

func (e *engine) onTransportClosed(err error) {
	if e.done {
		return
	}
	if err == nil {
		err = domain.ErrTransportClosed
	}
	e.fail(fsm.EventError, domain.CodeTxClosed, "transport", err)
}

func (e *engine) onTimeout(code domain.Code) {
	if e.done {
		return
	}
	e.fail(fsm.EventError, code, "wait "+string(e.m.State()), nil)
}

// expect checks that ev is legal now without applying it.
func (e *engine) expect(ev fsm.Event) error {
	_, err := fsm.Next(e.role, e.m.State(), ev)
	return err
}

func (e *engine) apply(ev fsm.Event) error {
	tr, err := e.m.Apply(ev)
	if err != nil {
		return err
	}
	if tr.Changed() {
		log.WithFields(e.fields("(engine) apply", logger.Fields{"from": tr.From, "event": tr.Event})).Debug("transition")
		if e.hooks.OnState != nil {
			e.hooks.OnState(tr)
		}
	}
	return nil
}

func (e *engine) send(f frame.Frame) error {
	raw, err := f.Encode()
	if err != nil {
		return err
	}
	if err := e.t.Send(raw); err != nil {
		code := domain.CodeTxSend
		if errors.Is(err, domain.ErrTransportClosed) {
			code = domain.CodeTxClosed
		}
		return domain.NewError(code, "send "+string(f.Type), err)
	}
	e.lastSent = &f
	return nil
}

func (e *engine) resendLast() {
	if e.done || e.lastSent == nil {
		return
	}
	raw, err := e.lastSent.Encode()
	if err != nil {
		return
	}
	if err := e.t.Send(raw); err != nil {
		log.WithFields(e.fields("(engine) resendLast")).WithError(err).Debug("nudge resend failed")
		return
	}
	log.WithFields(e.fields("(engine) resendLast", logger.Fields{"frame": e.lastSent.Type})).Debug("nudged peer")
}

// beginConfirm publishes the code and asks the human.
func (e *engine) beginConfirm(res sas.Result) {
	e.code = res
	if e.hooks.OnSASHash != nil {
		e.hooks.OnSASHash(res.HashHex())
	}
	if e.hooks.OnSAS != nil {
		e.hooks.OnSAS(res.Code)
	}
	e.timer.Arm(fsm.SASConfirm, domain.CodeTimeoutWaitSAS)

	ctx, code := e.ctx, res.Code
	go func() {
		ok, err := e.hooks.WaitConfirm(ctx, code)
		e.box.put(func() { e.onDecision(ok, err) })
	}()
}

func (e *engine) onDecision(ok bool, err error) {
	if e.done || e.localConfirmed || e.m.State() != fsm.SASConfirm {
		return
	}
	if err != nil {
		e.fail(fsm.EventError, domain.CodeCanceled, "confirm sas", err)
		return
	}
	if !ok {
		e.fail(fsm.EventRejected, domain.CodeSASRejected, "confirm sas", nil)
		return
	}

	e.timer.Clear()
	e.localConfirmed = true
	if err := e.send(frame.RcvConfirm(e.sess.SessionID)); err != nil {
		e.failWith(err)
		return
	}
	if e.sess.Policy == domain.PolicyDurable || e.peerConfirmed {
		e.finish()
		return
	}
	e.timer.ArmWindow(fsm.SASConfirm, domain.CodeTimeoutWaitPeerConfirm, e.opts.Timeouts.PeerConfirm)
}

func (e *engine) onRcvConfirm(f frame.Frame) error {
	if err := e.expect(fsm.EventRcvConfirm); err != nil {
		return err
	}
	e.peerConfirmed = true
	if e.hooks.OnPeerConfirm != nil {
		e.hooks.OnPeerConfirm(f)
	}
	if e.localConfirmed {
		e.timer.Clear()
		e.finish()
	}
	return nil
}

func (e *engine) finish() {
	if err := e.apply(fsm.EventRcvConfirm); err != nil {
		e.failWith(err)
		return
	}
	e.result = Result{
		Role:        e.role,
		State:       e.m.State(),
		RoomID:      e.sess.RoomID,
		SessionID:   e.sess.SessionID,
		SAS:         e.code.Code,
		SASHash:     e.code.HashHex(),
		PeerMsg:     append([]byte(nil), e.peerMsg...),
		CompletedAt: e.sess.Now(),
	}
	e.done = true
	log.WithFields(e.fields("(engine) finish")).Info("peer authenticated")
	if e.hooks.OnDone != nil {
		e.hooks.OnDone(e.result)
	}
}

// failWith ends the run with err, which should carry a domain code.
func (e *engine) failWith(err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		e.fail(fsm.EventError, de.Code, de.Op, de.Err)
		return
	}
	e.fail(fsm.EventError, domain.CodeProtocol, "", err)
}

func (e *engine) fail(ev fsm.Event, code domain.Code, op string, cause error) {
	if e.done {
		return
	}
	e.timer.Clear()
	if err := e.apply(ev); err != nil {
		log.WithFields(e.fields("(engine) fail")).WithError(err).Warn("applying failure event")
	}
	e.err = domain.NewError(code, op, cause)
	e.done = true

	f := e.fields("(engine) fail", logger.Fields{"code": code})
	if code.IsMallory() {
		log.WithFields(f).WithError(e.err).Warn("authentication failed")
	} else {
		log.WithFields(f).WithError(e.err).Debug("run failed")
	}
	if e.hooks.OnError != nil {
		e.hooks.OnError(e.err)
	}
}

// keep registers b to be wiped at teardown.
func (e *engine) keep(b []byte) []byte {
	e.secrets = append(e.secrets, b)
	return b
}
