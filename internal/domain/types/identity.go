package types

// Identity holds your long-term Ed25519 key pair. The public half is what a
// verification run authenticates.
type Identity struct {
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}
