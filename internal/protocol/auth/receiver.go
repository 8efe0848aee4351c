package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
	"sascheck/internal/protocol/commit"
	"sascheck/internal/protocol/frame"
	"sascheck/internal/protocol/fsm"
	"sascheck/internal/protocol/sas"
)

// Receiver runs the committing side: it commits to msgR, waits for the
// sender's offer, then reveals msgR and its nonce.
type Receiver struct {
	e *engine

	own   commit.Record
	retry *time.Timer
}

// NewReceiver validates opts and returns a Receiver bound to t.
func NewReceiver(t domain.Transport, opts Options, hooks Hooks) (*Receiver, error) {
	e, err := newEngine(domain.RoleReceiver, t, opts, hooks)
	if err != nil {
		return nil, err
	}
	r := &Receiver{e: e}
	e.onKickoff = r.kickoff
	e.handlers = map[frame.Type]func(frame.Frame) error{
		frame.TypeOffer:      r.onOffer,
		frame.TypeRcvConfirm: e.onRcvConfirm,
	}
	e.cleanups = append(e.cleanups, func() {
		if r.retry != nil {
			r.retry.Stop()
		}
	})
	return r, nil
}

// Run blocks until the exchange finishes.
func (r *Receiver) Run(ctx context.Context) (Result, error) { return r.e.run(ctx) }

// Close stops a running exchange with CodeCanceled.
func (r *Receiver) Close() { r.e.close() }

func (r *Receiver) kickoff() error {
	e := r.e
	rec, err := commit.Compute(e.opts.RecvMsg, commit.Params{
		Alg:   commit.Alg(e.opts.Algs.Commit),
		Label: commit.DefaultLabel,
	})
	if err != nil {
		return err
	}
	r.own = rec
	e.keep(r.own.Nonce)

	if err := e.apply(fsm.EventRoomFull); err != nil {
		return err
	}
	e.timer.Arm(fsm.WaitCommit, domain.CodeTimeoutWaitCommit)
	return r.sendCommit()
}

// sendCommit sends the commitment, rescheduling itself while a live link
// is down. The WAIT_COMMIT timer bounds the retries.
func (r *Receiver) sendCommit() error {
	e := r.e
	if e.done || e.m.State() != fsm.WaitCommit {
		return nil
	}
	f := frame.Commit(e.sess.SessionID, e.sess.RoomID, e.opts.Algs, r.own.Commitment, e.opts.RecvMeta)
	if err := e.send(f); err != nil {
		if !errors.Is(err, domain.ErrNotConnected) {
			return err
		}
		log.WithFields(e.fields("(Receiver) sendCommit", logger.Fields{"backoff": e.opts.RetryBackoff})).
			Debug("link down, retrying commit")
		r.retry = time.AfterFunc(e.opts.RetryBackoff, func() {
			e.box.put(func() {
				if err := r.sendCommit(); err != nil {
					e.failWith(err)
				}
			})
		})
		return nil
	}
	if err := e.apply(fsm.EventCommit); err != nil {
		return err
	}
	e.timer.Arm(fsm.WaitOffer, domain.CodeTimeoutWaitOffer)
	return nil
}

func (r *Receiver) onOffer(f frame.Frame) error {
	e := r.e
	if err := e.expect(fsm.EventOffer); err != nil {
		return err
	}
	msgS, nonceS, err := f.OfferPayload()
	if err != nil {
		return err
	}

	e.timer.Clear()
	if sm := e.opts.SendMeta; !sm.IsZero() && sm.VK != "" &&
		subtle.ConstantTimeCompare([]byte(sm.VK), []byte(crypto.B64(msgS))) != 1 {
		e.fail(fsm.EventBadSig, domain.CodePeerMismatch, "receive offer",
			oops.Errorf("offered key does not match the expected sender"))
		return nil
	}
	if err := e.apply(fsm.EventOffer); err != nil {
		return err
	}
	e.peerMsg = msgS

	if err := e.send(frame.Reveal(e.sess.SessionID, e.opts.RecvMsg, r.own.Nonce)); err != nil {
		return err
	}
	res, err := sas.Compute(sas.Transcript{
		RoomID:     e.sess.RoomID,
		SessionID:  e.sess.SessionID,
		Commitment: r.own.Commitment,
		MsgS:       msgS,
		NonceS:     nonceS,
		MsgR:       e.opts.RecvMsg,
		NonceR:     r.own.Nonce,
	}, e.opts.Digits)
	if err != nil {
		return err
	}
	e.beginConfirm(res)
	return nil
}
