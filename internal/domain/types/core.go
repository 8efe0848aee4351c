package types

import "strings"

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Role names which side of a verification run we play.
type Role string

const (
	// RoleSender offers its identity material after seeing the peer's commitment.
	RoleSender Role = "sender"
	// RoleReceiver commits to its identity material first and reveals it last.
	RoleReceiver Role = "receiver"
)

// String returns the string form of the role.
func (r Role) String() string { return string(r) }

// Peer returns the opposite role.
func (r Role) Peer() Role {
	if r == RoleSender {
		return RoleReceiver
	}
	return RoleSender
}

// Policy is the liveness model of the channel a run is carried over.
type Policy string

const (
	// PolicyLive is a peer-to-peer channel that must report "up" before frames flow.
	PolicyLive Policy = "rtc"
	// PolicyDurable is a store-and-forward relay; writes queue while the peer is offline.
	PolicyDurable Policy = "ws_async"
)

// String returns the string form of the policy.
func (p Policy) String() string { return string(p) }

// ParsePolicy accepts the wire names ("rtc", "ws_async") and the
// friendlier aliases "live" and "durable".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rtc", "live":
		return PolicyLive, nil
	case "ws_async", "durable", "relay":
		return PolicyDurable, nil
	}
	return "", NewError(CodeBadParam, "parse policy", ErrUnknownPolicy)
}

// PeerMeta is an optional identity hint carried alongside (or checked
// against) a peer's identity material.
type PeerMeta struct {
	ID string `json:"id,omitempty"`
	VK string `json:"vk,omitempty"` // base64url, no padding
}

// IsZero reports whether no hint was supplied.
func (m *PeerMeta) IsZero() bool { return m == nil || (m.ID == "" && m.VK == "") }

// Algs are advisory algorithm names exchanged in the commit frame.
type Algs struct {
	Commit string `json:"commit,omitempty"`
	KEM    string `json:"kem,omitempty"`
	KDF    string `json:"kdf,omitempty"`
}
