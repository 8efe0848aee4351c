package interfaces

import domaintypes "sascheck/internal/domain/types"

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// PeerStore keeps the peers whose short code was confirmed.
type PeerStore interface {
	SavePeer(peer domaintypes.VerifiedPeer) error
	LoadPeer(fp domaintypes.Fingerprint) (domaintypes.VerifiedPeer, bool, error)
	ListPeers() ([]domaintypes.VerifiedPeer, error)
}
