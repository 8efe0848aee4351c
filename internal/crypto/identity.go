package crypto

import "sascheck/internal/domain"

// NewIdentity generates a fresh Ed25519 key pair.
func NewIdentity() (domain.Identity, error) {
	edpriv, edpub, err := GenerateEd25519()
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{EdPub: edpub, EdPriv: edpriv}, nil
}

// VerificationKey is the identity material a verification run authenticates:
// the Ed25519 public key.
func VerificationKey(id domain.Identity) []byte {
	out := make([]byte, len(id.EdPub))
	copy(out, id.EdPub[:])
	return out
}

// IdentityFingerprint is the fingerprint shown to users for id.
func IdentityFingerprint(id domain.Identity) domain.Fingerprint {
	return domain.Fingerprint(Fingerprint(id.EdPub.Slice()))
}
