package frame

import (
	"encoding/json"

	"github.com/samber/oops"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
	"sascheck/internal/protocol/commit"
)

// Type discriminates the frame union.
type Type string

const (
	TypeCommit     Type = "commit"
	TypeOffer      Type = "offer"
	TypeReveal     Type = "reveal"
	TypeRcvConfirm Type = "rcvconfirm"
)

// Frame is the flattened union of all frame shapes. Only the fields of the
// frame's Type are set.
type Frame struct {
	Type      Type   `json:"type"`
	SessionID string `json:"sessionId"`

	// commit
	RoomID     string           `json:"roomId,omitempty"`
	Algs       *domain.Algs     `json:"algs,omitempty"`
	Commitment string           `json:"commitment,omitempty"`
	Recv       *domain.PeerMeta `json:"recv,omitempty"`

	// offer
	MsgS   string `json:"msgS,omitempty"`
	NonceS string `json:"nonceS,omitempty"`

	// reveal
	MsgR   string `json:"msgR,omitempty"`
	NonceR string `json:"nonceR,omitempty"`
}

// Commit builds the receiver's commit frame. recv may be nil.
func Commit(sessionID, roomID string, algs domain.Algs, commitment []byte, recv *domain.PeerMeta) Frame {
	a := algs
	var hint *domain.PeerMeta
	if !recv.IsZero() {
		h := *recv
		hint = &h
	}
	return Frame{
		Type:       TypeCommit,
		SessionID:  sessionID,
		RoomID:     roomID,
		Algs:       &a,
		Commitment: crypto.B64(commitment),
		Recv:       hint,
	}
}

// Offer builds the sender's offer frame.
func Offer(sessionID string, msgS, nonceS []byte) Frame {
	return Frame{Type: TypeOffer, SessionID: sessionID, MsgS: crypto.B64(msgS), NonceS: crypto.B64(nonceS)}
}

// Reveal builds the receiver's reveal frame.
func Reveal(sessionID string, msgR, nonceR []byte) Frame {
	return Frame{Type: TypeReveal, SessionID: sessionID, MsgR: crypto.B64(msgR), NonceR: crypto.B64(nonceR)}
}

// RcvConfirm builds the confirmation frame either side sends after its human
// accepted the code.
func RcvConfirm(sessionID string) Frame {
	return Frame{Type: TypeRcvConfirm, SessionID: sessionID}
}

// Encode marshals f after validating it.
func (f Frame) Encode() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, oops.Wrapf(err, "encoding %s frame", f.Type)
	}
	return b, nil
}

// Decode parses and validates one frame.
func Decode(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, domain.NewError(domain.CodeProtocol, "decode frame", oops.Wrapf(err, "malformed json"))
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks that every field required by f.Type is present and well formed.
func (f Frame) Validate() error {
	if f.SessionID == "" {
		return invalid(f.Type, "missing sessionId")
	}
	switch f.Type {
	case TypeCommit:
		if f.RoomID == "" {
			return invalid(f.Type, "missing roomId")
		}
		if f.Algs == nil {
			return invalid(f.Type, "missing algs")
		}
		if _, err := commit.ParseAlg(f.Algs.Commit); err != nil {
			return err
		}
		c, err := crypto.FromB64(f.Commitment)
		if err != nil || len(c) == 0 {
			return invalid(f.Type, "bad commitment")
		}
		if f.Recv != nil && f.Recv.VK != "" {
			if _, err := crypto.FromB64(f.Recv.VK); err != nil {
				return invalid(f.Type, "bad recv.vk")
			}
		}
	case TypeOffer:
		return checkPair(f.Type, "msgS", f.MsgS, "nonceS", f.NonceS)
	case TypeReveal:
		return checkPair(f.Type, "msgR", f.MsgR, "nonceR", f.NonceR)
	case TypeRcvConfirm:
	default:
		return domain.NewError(domain.CodeProtocol, "validate frame", oops.Errorf("unknown frame type %q", f.Type))
	}
	return nil
}

func checkPair(t Type, msgName, msg, nonceName, nonce string) error {
	m, err := crypto.FromB64(msg)
	if err != nil || len(m) == 0 {
		return invalid(t, "bad "+msgName)
	}
	n, err := crypto.FromB64(nonce)
	if err != nil || len(n) < commit.MinNonceSize {
		return invalid(t, "bad "+nonceName)
	}
	return nil
}

func invalid(t Type, why string) error {
	return domain.NewError(domain.CodeProtocol, "validate "+string(t)+" frame", oops.Errorf("%s", why))
}

// Equal reports whether f and g carry the same type and payload.
func (f Frame) Equal(g Frame) bool {
	if f.Type != g.Type || f.SessionID != g.SessionID || f.RoomID != g.RoomID ||
		f.Commitment != g.Commitment || f.MsgS != g.MsgS || f.NonceS != g.NonceS ||
		f.MsgR != g.MsgR || f.NonceR != g.NonceR {
		return false
	}
	return equalAlgs(f.Algs, g.Algs) && equalMeta(f.Recv, g.Recv)
}

func equalAlgs(a, b *domain.Algs) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalMeta(a, b *domain.PeerMeta) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	return *a == *b
}

// CommitmentBytes decodes the commitment of a commit frame.
func (f Frame) CommitmentBytes() ([]byte, error) {
	return decodeField(f.Type, "commitment", f.Commitment)
}

// OfferPayload decodes msgS and nonceS.
func (f Frame) OfferPayload() (msgS, nonceS []byte, err error) {
	if msgS, err = decodeField(f.Type, "msgS", f.MsgS); err != nil {
		return nil, nil, err
	}
	if nonceS, err = decodeField(f.Type, "nonceS", f.NonceS); err != nil {
		return nil, nil, err
	}
	return msgS, nonceS, nil
}

// RevealPayload decodes msgR and nonceR.
func (f Frame) RevealPayload() (msgR, nonceR []byte, err error) {
	if msgR, err = decodeField(f.Type, "msgR", f.MsgR); err != nil {
		return nil, nil, err
	}
	if nonceR, err = decodeField(f.Type, "nonceR", f.NonceR); err != nil {
		return nil, nil, err
	}
	return msgR, nonceR, nil
}

func decodeField(t Type, name, v string) ([]byte, error) {
	b, err := crypto.FromB64(v)
	if err != nil {
		return nil, domain.NewError(domain.CodeProtocol, "decode "+string(t)+" frame",
			oops.Wrapf(err, "field %s", name))
	}
	return b, nil
}
