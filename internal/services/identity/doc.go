// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the Ed25519 key pair, and
// persists it via the domain.IdentityStore. The Ed25519 public key is what
// a verification run authenticates, so fingerprints are taken over it.
package identity
