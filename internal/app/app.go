package app

import (
	"context"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/auth"
	"sascheck/internal/relay"
	"sascheck/internal/services/verify"
	"sascheck/internal/transport/ws"
)

// App is what the commands hold on to.
type App struct {
	Config Config
	*Wire
}

// New loads nothing itself; it wires cfg and returns the App.
func New(cfg Config, confirm domain.Confirmer) (*App, error) {
	w, err := NewWire(cfg, confirm)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Wire: w}, nil
}

// Endpoint says how to reach the peer.
type Endpoint struct {
	Policy domain.Policy
	Role   domain.Role
	RoomID string
	// Live only: exactly one of Listen (address to accept on) or Peer
	// (ws:// URL to dial).
	Listen string
	Peer   string
}

// OpenTransport builds the transport for e. The caller closes it.
func (a *App) OpenTransport(ctx context.Context, e Endpoint) (domain.Transport, error) {
	switch e.Policy {
	case domain.PolicyDurable:
		if a.Config.RelayURL == "" {
			return nil, oops.Errorf("durable policy needs a relay URL")
		}
		return relay.NewMailbox(a.Relay, e.RoomID, e.Role, relay.WithPollInterval(a.Config.PollInterval)), nil
	case domain.PolicyLive:
		switch {
		case e.Listen != "" && e.Peer != "":
			return nil, oops.Errorf("use either a listen address or a peer URL, not both")
		case e.Listen != "":
			l, err := ws.Listen(e.Listen, ws.DefaultPath)
			if err != nil {
				return nil, err
			}
			log.WithFields(logger.Fields{"at": "(App) OpenTransport", "url": l.URL()}).Info("waiting for peer")
			return l, nil
		case e.Peer != "":
			return ws.Dial(ctx, e.Peer), nil
		}
		return nil, oops.Errorf("live policy needs --listen or --peer")
	}
	return nil, domain.ErrUnknownPolicy
}

// VerifyParams are the per-run inputs the commands collect.
type VerifyParams struct {
	Endpoint
	SessionID  string
	Passphrase string
	Expect     *domain.PeerMeta
	OnSAS      func(string)
}

// Verify opens the transport, runs the verification and closes the
// transport again.
func (a *App) Verify(ctx context.Context, p VerifyParams) (domain.VerifiedPeer, error) {
	t, err := a.OpenTransport(ctx, p.Endpoint)
	if err != nil {
		return domain.VerifiedPeer{}, err
	}
	defer t.Close()
	return a.VerifyOver(ctx, t, p)
}

// VerifyOver runs the verification on an already open transport.
func (a *App) VerifyOver(ctx context.Context, t domain.Transport, p VerifyParams) (domain.VerifiedPeer, error) {
	timeouts := a.Config.Timeouts
	if p.Policy != a.Config.Policy {
		timeouts = auth.DefaultTimeouts(p.Policy)
	}
	return a.Verifier.Run(ctx, verify.Request{
		Role:       p.Role,
		Policy:     p.Policy,
		RoomID:     p.RoomID,
		SessionID:  p.SessionID,
		Passphrase: p.Passphrase,
		Transport:  t,
		Expect:     p.Expect,
		Timeouts:   &timeouts,
		Digits:     a.Config.Digits,
		OnSAS:      p.OnSAS,
	})
}
