// Package store provides file-based persistence for sascheck.
//
// Files live under the configured home directory (default ~/.sascheck):
//
//   - identity.json.enc: the long-term identity, sealed with
//     ChaCha20-Poly1305 under a scrypt-derived key (IdentityFileStore)
//   - peers.json: peers whose short code both humans confirmed, keyed by
//     fingerprint (PeerFileStore)
//
// Writes go through a temp file and rename. All methods are safe for
// concurrent use.
package store
