package app

import (
	"net/http"

	"sascheck/internal/domain"
	"sascheck/internal/relay"
	"sascheck/internal/services/identity"
	"sascheck/internal/services/verify"
	"sascheck/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	IdentityStore domain.IdentityStore
	Identity      domain.IdentityService
	Peers         domain.PeerStore
	Verifier      *verify.Service
	Relay         *relay.Client
	HTTP          *http.Client
}

// NewWire constructs the dependency graph from cfg. confirm asks the human
// to compare codes.
func NewWire(cfg Config, confirm domain.Confirmer) (*Wire, error) {
	// File-based stores
	identityStore := store.NewIdentityFileStore(cfg.Home)
	peerStore := store.NewPeerFileStore(cfg.Home)

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	rc := relay.NewClient(cfg.RelayURL)
	rc.HTTP = httpClient

	// High-level services
	idSvc := identity.New(identityStore)
	verifySvc := verify.New(idSvc, peerStore, confirm)

	return &Wire{
		IdentityStore: identityStore,
		Identity:      idSvc,
		Peers:         peerStore,
		Verifier:      verifySvc,
		Relay:         rc,
		HTTP:          httpClient,
	}, nil
}
