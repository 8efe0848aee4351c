package types

// VerifiedPeer is the record kept after a run reached READY and both
// humans confirmed the same short code.
type VerifiedPeer struct {
	Fingerprint Fingerprint `json:"fingerprint" yaml:"fingerprint"`
	PublicKey   []byte      `json:"public_key" yaml:"-"`
	Role        Role        `json:"role" yaml:"role"`
	RoomID      string      `json:"room_id" yaml:"room_id"`
	SessionID   string      `json:"session_id" yaml:"session_id"`
	SASHash     string      `json:"sas_hash" yaml:"sas_hash"`
	VerifiedUTC int64       `json:"verified_utc" yaml:"verified_utc"`
}
