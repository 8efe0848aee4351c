package sas

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/samber/oops"
	"golang.org/x/crypto/sha3"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
)

// ProtocolLabel opens every transcript.
const ProtocolLabel = "sascheck/sas/v1"

const (
	// DefaultDigits is the length of the code shown to users.
	DefaultDigits = 6
	// MaxDigits keeps 10^digits within one 32-bit sample.
	MaxDigits = 9

	sampleBytes = 8
)

// Transcript is everything both peers must agree on for their codes to match.
type Transcript struct {
	RoomID     string
	SessionID  string
	Commitment []byte
	MsgS       []byte
	NonceS     []byte
	MsgR       []byte
	NonceR     []byte
}

// Bytes returns the length-prefixed encoding hashed by Compute.
func (t Transcript) Bytes() []byte {
	var b []byte
	b = crypto.AppendLP(b, []byte(ProtocolLabel))
	b = crypto.AppendLP(b, []byte(t.RoomID))
	b = crypto.AppendLP(b, []byte(t.SessionID))
	b = crypto.AppendLP(b, t.Commitment)
	b = crypto.AppendLP(b, t.MsgS)
	b = crypto.AppendLP(b, t.NonceS)
	b = crypto.AppendLP(b, t.MsgR)
	b = crypto.AppendLP(b, t.NonceR)
	return b
}

// Result is a derived code and the transcript hash it came from.
type Result struct {
	Code     string
	FullHash [32]byte
}

// HashHex returns the transcript hash as lowercase hex.
func (r Result) HashHex() string { return hex.EncodeToString(r.FullHash[:]) }

// Compute derives a digits-long decimal code from t.
func Compute(t Transcript, digits int) (Result, error) {
	return FromBytes(t.Bytes(), digits)
}

// FromBytes derives a code from an already-encoded transcript.
func FromBytes(transcript []byte, digits int) (Result, error) {
	if digits < 1 || digits > MaxDigits {
		return Result{}, domain.NewError(domain.CodeBadParam, "compute sas",
			oops.Errorf("digits must be in [1,%d], got %d", MaxDigits, digits))
	}
	full := sha3.Sum256(transcript)
	var xof [sampleBytes]byte
	sha3.ShakeSum128(xof[:], full[:])
	return Result{Code: fromSamples(xof, digits), FullHash: full}, nil
}

// fromSamples turns 8 XOF bytes into a code by rejection sampling.
func fromSamples(xof [sampleBytes]byte, digits int) string {
	m := uint64(1)
	for i := 0; i < digits; i++ {
		m *= 10
	}
	limit := ((uint64(1) << 32) / m) * m

	first := uint64(binary.BigEndian.Uint32(xof[0:4]))
	second := uint64(binary.BigEndian.Uint32(xof[4:8]))
	for _, s := range []uint64{first, second} {
		if s < limit {
			return pad(s%m, digits)
		}
	}
	return pad(first%m, digits)
}

func pad(v uint64, digits int) string {
	return fmt.Sprintf("%0*d", digits, v)
}
