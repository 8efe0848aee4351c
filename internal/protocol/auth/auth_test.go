package auth

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/commit"
	"sascheck/internal/protocol/frame"
	"sascheck/internal/protocol/fsm"
	"sascheck/internal/transport/memory"
)

func randomKey(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestLiveHappyPath(t *testing.T) {
	for _, alg := range []commit.Alg{commit.SHA3_256, commit.SHA256} {
		t.Run(string(alg), func(t *testing.T) {
			a, b := memory.Pipe(domain.PolicyLive)
			opts := baseOpts(domain.PolicyLive)
			opts.SendMsg = randomKey(t, 32)
			opts.RecvMsg = randomKey(t, 65)
			opts.Algs.Commit = string(alg)

			sRes, rRes := make(chan Result, 1), make(chan Result, 1)
			s, err := NewSender(a, opts, Hooks{WaitConfirm: accept, OnDone: func(r Result) { sRes <- r }})
			require.NoError(t, err)
			r, err := NewReceiver(b, opts, Hooks{WaitConfirm: accept, OnDone: func(r Result) { rRes <- r }})
			require.NoError(t, err)

			a.Connect()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			sDone, rDone := start(ctx, s), start(ctx, r)

			so, ro := wait(t, sDone), wait(t, rDone)
			require.NoError(t, so.err)
			require.NoError(t, ro.err)
			assert.Equal(t, fsm.Ready, so.res.State)
			assert.Equal(t, fsm.Ready, ro.res.State)
			assert.Equal(t, so.res.SAS, ro.res.SAS)
			assert.Equal(t, so.res.SASHash, ro.res.SASHash)
			assert.Len(t, so.res.SAS, 6)

			var sDoneRes, rDoneRes Result
			select {
			case sDoneRes = <-sRes:
			default:
				t.Fatal("sender OnDone not called")
			}
			select {
			case rDoneRes = <-rRes:
			default:
				t.Fatal("receiver OnDone not called")
			}
			assert.Equal(t, opts.RecvMsg, sDoneRes.PeerMsg)
			assert.Equal(t, opts.SendMsg, rDoneRes.PeerMsg)
			assert.Equal(t, so.res, sDoneRes)
			assert.Equal(t, ro.res, rDoneRes)
		})
	}
}

func TestTamperedRevealIsMallory(t *testing.T) {
	flip := func(from string, raw []byte) []byte {
		f, err := frame.Decode(raw)
		if err != nil || f.Type != frame.TypeReveal {
			return raw
		}
		msgR, nonceR, err := f.RevealPayload()
		if err != nil {
			return raw
		}
		nonceR[0] ^= 0x01
		out, err := frame.Reveal(f.SessionID, msgR, nonceR).Encode()
		if err != nil {
			return raw
		}
		return out
	}
	a, b := memory.Pipe(domain.PolicyLive, memory.WithTamper(flip))
	opts := baseOpts(domain.PolicyLive)

	sStates, rStates := &stateLog{}, &stateLog{}
	s, err := NewSender(a, opts, Hooks{WaitConfirm: accept, OnState: sStates.add})
	require.NoError(t, err)
	r, err := NewReceiver(b, opts, Hooks{WaitConfirm: accept, OnState: rStates.add})
	require.NoError(t, err)

	a.Connect()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sDone, rDone := start(ctx, s), start(ctx, r)

	so := wait(t, sDone)
	requireCode(t, so.err, domain.CodeCommitMismatch)
	assert.Equal(t, fsm.Mallory, sStates.last())

	ro := wait(t, rDone)
	require.Error(t, ro.err)
	assert.NotEqual(t, fsm.Ready, rStates.last())
}

func TestDurableLateSender(t *testing.T) {
	a, b := memory.Pipe(domain.PolicyDurable)
	opts := baseOpts(domain.PolicyDurable)

	r, err := NewReceiver(b, opts, Hooks{WaitConfirm: accept})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rDone := start(ctx, r)

	time.Sleep(200 * time.Millisecond)
	s, err := NewSender(a, opts, Hooks{WaitConfirm: accept})
	require.NoError(t, err)
	sDone := start(ctx, s)

	so, ro := wait(t, sDone), wait(t, rDone)
	require.NoError(t, so.err)
	require.NoError(t, ro.err)
	assert.Equal(t, fsm.Ready, so.res.State)
	assert.Equal(t, fsm.Ready, ro.res.State)
	assert.Equal(t, so.res.SAS, ro.res.SAS)
}

func TestLiveUnpairedReceiverTimesOut(t *testing.T) {
	_, b := memory.Pipe(domain.PolicyLive)
	opts := baseOpts(domain.PolicyLive)
	tm := DefaultTimeouts(domain.PolicyLive)
	tm.WaitCommit = 200 * time.Millisecond
	opts.Timeouts = &tm
	opts.RetryBackoff = 20 * time.Millisecond

	states := &stateLog{}
	r, err := NewReceiver(b, opts, Hooks{WaitConfirm: accept, OnState: states.add})
	require.NoError(t, err)

	o := wait(t, start(context.Background(), r))
	requireCode(t, o.err, domain.CodeTimeoutWaitCommit)
	assert.Equal(t, fsm.Error, states.last())
}

func TestLiveReceiverRetriesUntilLinkUp(t *testing.T) {
	a, b := memory.Pipe(domain.PolicyLive)
	opts := baseOpts(domain.PolicyLive)
	opts.RetryBackoff = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := NewReceiver(b, opts, Hooks{WaitConfirm: accept})
	require.NoError(t, err)
	rDone := start(ctx, r)

	s, err := NewSender(a, opts, Hooks{WaitConfirm: accept})
	require.NoError(t, err)
	sDone := start(ctx, s)

	time.Sleep(50 * time.Millisecond)
	a.Connect()

	so, ro := wait(t, sDone), wait(t, rDone)
	require.NoError(t, so.err)
	require.NoError(t, ro.err)
	assert.Equal(t, so.res.SAS, ro.res.SAS)
}

func TestLivePeerNeverConfirms(t *testing.T) {
	a, b := memory.Pipe(domain.PolicyLive)
	opts := baseOpts(domain.PolicyLive)
	tm := DefaultTimeouts(domain.PolicyLive)
	tm.PeerConfirm = 100 * time.Millisecond
	tm.SAS = 300 * time.Millisecond
	opts.Timeouts = &tm

	s, err := NewSender(a, opts, Hooks{WaitConfirm: block})
	require.NoError(t, err)
	r, err := NewReceiver(b, opts, Hooks{WaitConfirm: accept})
	require.NoError(t, err)

	a.Connect()
	sDone, rDone := start(context.Background(), s), start(context.Background(), r)

	requireCode(t, wait(t, rDone).err, domain.CodeTimeoutWaitPeerConfirm)
	requireCode(t, wait(t, sDone).err, domain.CodeTimeoutWaitSAS)
}
