package verify

import (
	"context"
	"crypto/ed25519"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
	"sascheck/internal/protocol/auth"
	"sascheck/internal/protocol/fsm"
)

var log = logger.GetGoI2PLogger()

// Request describes one verification run.
type Request struct {
	Role       domain.Role
	Policy     domain.Policy
	RoomID     string
	SessionID  string
	Passphrase string
	Transport  domain.Transport

	// Expect pins the peer when its fingerprint or key is already known.
	// A fingerprint alone must belong to a peer verified earlier.
	Expect *domain.PeerMeta

	Timeouts *auth.Timeouts
	Digits   int

	// OnSAS shows the code to the human before Confirmer is asked.
	OnSAS func(code string)
	// OnState observes state machine transitions.
	OnState func(fsm.Transition)
}

// Service runs verifications.
type Service struct {
	ids     domain.IdentityService
	peers   domain.PeerStore
	confirm domain.Confirmer
}

// New returns a Service.
func New(ids domain.IdentityService, peers domain.PeerStore, confirm domain.Confirmer) *Service {
	return &Service{ids: ids, peers: peers, confirm: confirm}
}

// runner is satisfied by *auth.Sender and *auth.Receiver.
type runner interface {
	Run(ctx context.Context) (auth.Result, error)
}

// Run authenticates to the peer on req.Transport and records the peer on
// success.
func (s *Service) Run(ctx context.Context, req Request) (domain.VerifiedPeer, error) {
	id, err := s.ids.LoadIdentity(req.Passphrase)
	if err != nil {
		return domain.VerifiedPeer{}, err
	}
	own := crypto.VerificationKey(id)
	fp := crypto.IdentityFingerprint(id)
	pin, err := s.resolvePin(req.Expect)
	if err != nil {
		return domain.VerifiedPeer{}, err
	}

	opts := auth.Options{
		RoomID:    req.RoomID,
		SessionID: req.SessionID,
		Policy:    req.Policy,
		Timeouts:  req.Timeouts,
		Digits:    req.Digits,
	}
	hooks := auth.Hooks{
		WaitConfirm: s.confirm.ConfirmSAS,
		OnSAS:       req.OnSAS,
		OnState:     req.OnState,
	}

	var r runner
	switch req.Role {
	case domain.RoleSender:
		opts.SendMsg = own
		opts.RecvMeta = pin
		r, err = auth.NewSender(req.Transport, opts, hooks)
	case domain.RoleReceiver:
		opts.RecvMsg = own
		opts.RecvMeta = &domain.PeerMeta{ID: string(fp), VK: crypto.B64(own)}
		opts.SendMeta = pin
		r, err = auth.NewReceiver(req.Transport, opts, hooks)
	default:
		return domain.VerifiedPeer{}, domain.NewError(domain.CodeBadParam, "verify",
			oops.Errorf("unknown role %q", req.Role))
	}
	if err != nil {
		return domain.VerifiedPeer{}, err
	}

	fields := logger.Fields{
		"at":      "(Service) Run",
		"role":    req.Role,
		"room":    req.RoomID,
		"session": req.SessionID,
	}
	log.WithFields(fields).Info("starting verification")

	res, err := r.Run(ctx)
	if err != nil {
		if domain.CodeOf(err).IsMallory() {
			log.WithFields(fields).WithError(err).Warn("peer failed authentication; the channel may be under attack")
		}
		return domain.VerifiedPeer{}, err
	}

	if len(res.PeerMsg) != ed25519.PublicKeySize {
		return domain.VerifiedPeer{}, domain.NewError(domain.CodeProtocol, "verify",
			oops.Errorf("peer key is %d bytes, want %d", len(res.PeerMsg), ed25519.PublicKeySize))
	}
	peer := domain.VerifiedPeer{
		Fingerprint: domain.Fingerprint(crypto.Fingerprint(res.PeerMsg)),
		PublicKey:   res.PeerMsg,
		Role:        req.Role.Peer(),
		RoomID:      res.RoomID,
		SessionID:   res.SessionID,
		SASHash:     res.SASHash,
		VerifiedUTC: res.CompletedAt.UTC().Unix(),
	}
	if err := s.peers.SavePeer(peer); err != nil {
		return peer, oops.Wrapf(err, "saving verified peer")
	}
	fields["peer"] = peer.Fingerprint
	log.WithFields(fields).Info("peer verified")
	return peer, nil
}

// resolvePin turns a user-supplied pin into one carrying both the
// canonical fingerprint and the key, so it can be checked against what the
// peer actually reveals.
func (s *Service) resolvePin(want *domain.PeerMeta) (*domain.PeerMeta, error) {
	if want.IsZero() {
		return nil, nil
	}
	pin := domain.PeerMeta{ID: crypto.NormalizeFingerprint(want.ID), VK: want.VK}
	if pin.VK != "" {
		key, err := crypto.FromB64(pin.VK)
		if err != nil || len(key) != ed25519.PublicKeySize {
			return nil, domain.NewError(domain.CodeBadParam, "resolve pin",
				oops.Errorf("expected key is not a base64url Ed25519 public key"))
		}
		fp := crypto.Fingerprint(key)
		if pin.ID != "" && pin.ID != fp {
			return nil, domain.NewError(domain.CodeBadParam, "resolve pin",
				oops.Errorf("fingerprint %s does not belong to the expected key", pin.ID))
		}
		pin.ID = fp
		return &pin, nil
	}
	p, ok, err := s.peers.LoadPeer(domain.Fingerprint(pin.ID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewError(domain.CodeBadParam, "resolve pin",
			oops.Errorf("no verified peer with fingerprint %s; pin by key instead", pin.ID))
	}
	pin.VK = crypto.B64(p.PublicKey)
	return &pin, nil
}
