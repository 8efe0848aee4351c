package auth

import (
	"context"
	"crypto/subtle"

	"github.com/samber/oops"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
	"sascheck/internal/protocol/commit"
	"sascheck/internal/protocol/frame"
	"sascheck/internal/protocol/fsm"
	"sascheck/internal/protocol/sas"
)

// Sender runs the offering side: it waits for the receiver's commitment,
// sends msgS, then checks the receiver's reveal against the commitment.
type Sender struct {
	e *engine

	peerCommit []byte
	alg        commit.Alg
	nonceS     []byte
}

// NewSender validates opts and returns a Sender bound to t.
func NewSender(t domain.Transport, opts Options, hooks Hooks) (*Sender, error) {
	e, err := newEngine(domain.RoleSender, t, opts, hooks)
	if err != nil {
		return nil, err
	}
	s := &Sender{e: e}
	e.onKickoff = s.kickoff
	e.handlers = map[frame.Type]func(frame.Frame) error{
		frame.TypeCommit:     s.onCommit,
		frame.TypeReveal:     s.onReveal,
		frame.TypeRcvConfirm: e.onRcvConfirm,
	}
	return s, nil
}

// Run blocks until the exchange finishes. The error, if any, is a
// *domain.Error whose Code says why.
func (s *Sender) Run(ctx context.Context) (Result, error) { return s.e.run(ctx) }

// Close stops a running exchange with CodeCanceled.
func (s *Sender) Close() { s.e.close() }

func (s *Sender) kickoff() error {
	if err := s.e.apply(fsm.EventRoomFull); err != nil {
		return err
	}
	s.e.timer.Arm(fsm.WaitCommit, domain.CodeTimeoutWaitCommit)
	return nil
}

func (s *Sender) onCommit(f frame.Frame) error {
	e := s.e
	if err := e.expect(fsm.EventCommit); err != nil {
		return err
	}
	if f.RoomID != e.sess.RoomID {
		return domain.NewError(domain.CodeProtocol, "receive commit",
			oops.Errorf("commit for room %q, expected %q", f.RoomID, e.sess.RoomID))
	}
	var algName string
	if f.Algs != nil {
		algName = f.Algs.Commit
	}
	alg, err := commit.ParseAlg(algName)
	if err != nil {
		return err
	}
	c, err := f.CommitmentBytes()
	if err != nil {
		return err
	}

	e.timer.Clear()
	if err := e.apply(fsm.EventCommit); err != nil {
		return err
	}
	if !matchesHint(e.opts.RecvMeta, f.Recv) {
		e.fail(fsm.EventBadSig, domain.CodePeerMismatch, "receive commit",
			oops.Errorf("receiver metadata does not match the expected peer"))
		return nil
	}
	s.peerCommit, s.alg = c, alg

	nonce, err := commit.RandomNonce(commit.DefaultNonceSize)
	if err != nil {
		return err
	}
	s.nonceS = e.keep(nonce)
	if err := e.send(frame.Offer(e.sess.SessionID, e.opts.SendMsg, s.nonceS)); err != nil {
		return err
	}
	e.timer.Arm(fsm.WaitReveal, domain.CodeTimeoutWaitReveal)
	return nil
}

func (s *Sender) onReveal(f frame.Frame) error {
	e := s.e
	if err := e.expect(fsm.EventReveal); err != nil {
		return err
	}
	msgR, nonceR, err := f.RevealPayload()
	if err != nil {
		return err
	}

	e.timer.Clear()
	ok := commit.Verify(commit.Opening{
		Data:       msgR,
		Nonce:      nonceR,
		Commitment: s.peerCommit,
		Alg:        s.alg,
		Label:      commit.DefaultLabel,
	})
	if !ok {
		e.fail(fsm.EventVerifyFail, domain.CodeCommitMismatch, "verify reveal",
			oops.Errorf("revealed message does not open the commitment"))
		return nil
	}
	if want := e.opts.RecvMeta; !want.IsZero() && want.VK != "" &&
		subtle.ConstantTimeCompare([]byte(want.VK), []byte(crypto.B64(msgR))) != 1 {
		e.fail(fsm.EventBadSig, domain.CodePeerMismatch, "verify reveal",
			oops.Errorf("revealed key does not match the expected receiver"))
		return nil
	}
	if err := e.apply(fsm.EventReveal); err != nil {
		return err
	}
	e.peerMsg = msgR

	res, err := sas.Compute(sas.Transcript{
		RoomID:     e.sess.RoomID,
		SessionID:  e.sess.SessionID,
		Commitment: s.peerCommit,
		MsgS:       e.opts.SendMsg,
		NonceS:     s.nonceS,
		MsgR:       msgR,
		NonceR:     nonceR,
	}, e.opts.Digits)
	if err != nil {
		return err
	}
	e.beginConfirm(res)
	return nil
}

// matchesHint reports whether got satisfies every field set in want.
func matchesHint(want, got *domain.PeerMeta) bool {
	if want.IsZero() {
		return true
	}
	if got == nil {
		return false
	}
	if want.ID != "" && want.ID != got.ID {
		return false
	}
	if want.VK != "" && subtle.ConstantTimeCompare([]byte(want.VK), []byte(got.VK)) != 1 {
		return false
	}
	return true
}
