package verify_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
	"sascheck/internal/services/identity"
	"sascheck/internal/services/verify"
	"sascheck/internal/store"
	"sascheck/internal/transport/memory"
)

const pass = "Correct-Horse-9-Battery"

type answer bool

func (a answer) ConfirmSAS(context.Context, string) (bool, error) { return bool(a), nil }

type party struct {
	svc   *verify.Service
	peers *store.PeerFileStore
	id    domain.Identity
	fp    domain.Fingerprint
}

func newParty(t *testing.T, confirm domain.Confirmer) party {
	t.Helper()
	home := t.TempDir()
	ids := identity.New(store.NewIdentityFileStore(home))
	id, fp, err := ids.GenerateIdentity(pass)
	require.NoError(t, err)
	peers := store.NewPeerFileStore(home)
	return party{svc: verify.New(ids, peers, confirm), peers: peers, id: id, fp: fp}
}

type outcome struct {
	peer domain.VerifiedPeer
	err  error
}

func runBoth(t *testing.T, alice, bob party, policy domain.Policy, aliceExpect, bobExpect *domain.PeerMeta) (outcome, outcome) {
	t.Helper()
	a, b := memory.Pipe(policy)
	a.Connect()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req := verify.Request{Policy: policy, RoomID: "room", SessionID: "session", Passphrase: pass}
	sCh, rCh := make(chan outcome, 1), make(chan outcome, 1)
	go func() {
		r := req
		r.Role, r.Transport, r.Expect = domain.RoleSender, a, aliceExpect
		p, err := alice.svc.Run(ctx, r)
		sCh <- outcome{p, err}
	}()
	go func() {
		r := req
		r.Role, r.Transport, r.Expect = domain.RoleReceiver, b, bobExpect
		p, err := bob.svc.Run(ctx, r)
		rCh <- outcome{p, err}
	}()
	return <-sCh, <-rCh
}

func TestVerifyRecordsBothPeers(t *testing.T) {
	alice, bob := newParty(t, answer(true)), newParty(t, answer(true))

	so, ro := runBoth(t, alice, bob, domain.PolicyLive, nil, nil)
	require.NoError(t, so.err)
	require.NoError(t, ro.err)

	assert.Equal(t, bob.fp, so.peer.Fingerprint)
	assert.Equal(t, alice.fp, ro.peer.Fingerprint)
	assert.Equal(t, domain.RoleReceiver, so.peer.Role)
	assert.Equal(t, so.peer.SASHash, ro.peer.SASHash)

	stored, ok, err := alice.peers.LoadPeer(bob.fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, crypto.VerificationKey(bob.id), stored.PublicKey)
}

func TestVerifyPinnedPeer(t *testing.T) {
	alice, bob := newParty(t, answer(true)), newParty(t, answer(true))
	pinBob := &domain.PeerMeta{ID: string(bob.fp), VK: crypto.B64(crypto.VerificationKey(bob.id))}
	pinAlice := &domain.PeerMeta{VK: crypto.B64(crypto.VerificationKey(alice.id))}

	so, ro := runBoth(t, alice, bob, domain.PolicyDurable, pinBob, pinAlice)
	require.NoError(t, so.err)
	require.NoError(t, ro.err)
}

func TestVerifyWrongPinIsMallory(t *testing.T) {
	alice, bob, carol := newParty(t, answer(true)), newParty(t, answer(true)), newParty(t, answer(true))
	pinCarol := &domain.PeerMeta{VK: crypto.B64(crypto.VerificationKey(carol.id))}

	so, ro := runBoth(t, alice, bob, domain.PolicyLive, pinCarol, nil)
	assert.Equal(t, domain.CodePeerMismatch, domain.CodeOf(so.err))
	assert.Error(t, ro.err)

	list, err := alice.peers.ListPeers()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestVerifyPinByKnownFingerprint(t *testing.T) {
	alice, bob := newParty(t, answer(true)), newParty(t, answer(true))

	so, ro := runBoth(t, alice, bob, domain.PolicyLive, nil, nil)
	require.NoError(t, so.err)
	require.NoError(t, ro.err)

	// Second meeting: each side pins the other by the fingerprint it recorded,
	// typed the way a human might.
	pinBob := &domain.PeerMeta{ID: strings.ToUpper(string(bob.fp[:4])) + " " + string(bob.fp[4:])}
	pinAlice := &domain.PeerMeta{ID: string(alice.fp)}
	so, ro = runBoth(t, alice, bob, domain.PolicyLive, pinBob, pinAlice)
	require.NoError(t, so.err)
	require.NoError(t, ro.err)
}

func TestVerifyBadPins(t *testing.T) {
	alice, carol := newParty(t, answer(true)), newParty(t, answer(true))
	carolVK := crypto.B64(crypto.VerificationKey(carol.id))

	for name, pin := range map[string]*domain.PeerMeta{
		"unknown fingerprint": {ID: string(carol.fp)},
		"not a key":           {VK: "AQID"},
		"key and fp disagree": {ID: string(alice.fp), VK: carolVK},
	} {
		a, _ := memory.Pipe(domain.PolicyLive)
		_, err := alice.svc.Run(context.Background(), verify.Request{
			Role: domain.RoleSender, Policy: domain.PolicyLive, RoomID: "r", SessionID: "s",
			Passphrase: pass, Transport: a, Expect: pin,
		})
		assert.Equal(t, domain.CodeBadParam, domain.CodeOf(err), name)
	}
}

func TestVerifyRejected(t *testing.T) {
	alice, bob := newParty(t, answer(false)), newParty(t, answer(true))

	so, ro := runBoth(t, alice, bob, domain.PolicyLive, nil, nil)
	assert.Equal(t, domain.CodeSASRejected, domain.CodeOf(so.err))
	assert.Error(t, ro.err)

	list, err := bob.peers.ListPeers()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestVerifyUnknownRole(t *testing.T) {
	alice := newParty(t, answer(true))
	a, _ := memory.Pipe(domain.PolicyLive)
	_, err := alice.svc.Run(context.Background(), verify.Request{
		Role: "observer", Policy: domain.PolicyLive, RoomID: "r", SessionID: "s", Passphrase: pass, Transport: a,
	})
	assert.Equal(t, domain.CodeBadParam, domain.CodeOf(err))
}
