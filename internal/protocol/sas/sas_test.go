package sas_test

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/sas"
)

func sampleTranscript() sas.Transcript {
	return sas.Transcript{
		RoomID:     "room-1",
		SessionID:  "session-1",
		Commitment: bytes.Repeat([]byte{0xC0}, 32),
		MsgS:       bytes.Repeat([]byte{0x01}, 32),
		NonceS:     bytes.Repeat([]byte{0x02}, 32),
		MsgR:       bytes.Repeat([]byte{0x03}, 65),
		NonceR:     bytes.Repeat([]byte{0x04}, 32),
	}
}

func TestCompute_DeterministicAndSixDigits(t *testing.T) {
	tr := sampleTranscript()
	a, err := sas.Compute(tr, sas.DefaultDigits)
	require.NoError(t, err)
	b, err := sas.Compute(tr, sas.DefaultDigits)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), a.Code)
	assert.Len(t, a.HashHex(), 64)
}

func TestCompute_FormatForEveryDigitCount(t *testing.T) {
	tr := sampleTranscript()
	for d := 1; d <= sas.MaxDigits; d++ {
		r, err := sas.Compute(tr, d)
		require.NoError(t, err)
		assert.Len(t, r.Code, d)
		assert.Regexp(t, `^[0-9]+$`, r.Code)
	}
}

func TestCompute_RejectsBadDigits(t *testing.T) {
	for _, d := range []int{0, -1, 10} {
		_, err := sas.Compute(sampleTranscript(), d)
		require.Error(t, err)
		assert.Equal(t, domain.CodeBadParam, domain.CodeOf(err))
	}
}

func TestCompute_EveryFieldChangesHash(t *testing.T) {
	base, err := sas.Compute(sampleTranscript(), sas.DefaultDigits)
	require.NoError(t, err)

	flip := func(b []byte) []byte {
		out := append([]byte(nil), b...)
		out[len(out)-1] ^= 0x80
		return out
	}
	mutations := map[string]func(*sas.Transcript){
		"room":       func(t *sas.Transcript) { t.RoomID = "room-2" },
		"session":    func(t *sas.Transcript) { t.SessionID = "session-2" },
		"commitment": func(t *sas.Transcript) { t.Commitment = flip(t.Commitment) },
		"msgS":       func(t *sas.Transcript) { t.MsgS = flip(t.MsgS) },
		"nonceS":     func(t *sas.Transcript) { t.NonceS = flip(t.NonceS) },
		"msgR":       func(t *sas.Transcript) { t.MsgR = flip(t.MsgR) },
		"nonceR":     func(t *sas.Transcript) { t.NonceR = flip(t.NonceR) },
	}
	for name, mutate := range mutations {
		tr := sampleTranscript()
		mutate(&tr)
		got, err := sas.Compute(tr, sas.DefaultDigits)
		require.NoError(t, err)
		assert.NotEqual(t, base.FullHash, got.FullHash, name)
	}
}

func TestTranscript_FieldBoundariesAreUnambiguous(t *testing.T) {
	a := sas.Transcript{RoomID: "ab", SessionID: "c"}
	b := sas.Transcript{RoomID: "a", SessionID: "bc"}
	assert.NotEqual(t, a.Bytes(), b.Bytes())
}

func TestFromSamples_FirstSampleAccepted(t *testing.T) {
	// 0x000F4240 = 1000000 -> 1000000 mod 10^6 = 0
	xof := [8]byte{0x00, 0x0F, 0x42, 0x40, 0xFF, 0xFF, 0xFF, 0xFF}
	assert.Equal(t, "000000", sas.FromSamples(xof, 6))
}

func TestFromSamples_LargestAcceptedSample(t *testing.T) {
	// MAX for six digits is 4294000000 (0xFFF13D80); MAX-1 is still accepted.
	xof := [8]byte{0xFF, 0xF1, 0x3D, 0x7F, 0x00, 0x00, 0x00, 0x05}
	assert.Equal(t, "999999", sas.FromSamples(xof, 6))
}

func TestFromSamples_FirstRejectedSecondUsed(t *testing.T) {
	xof := [8]byte{0xFF, 0xF1, 0x3D, 0x80, 0x00, 0x00, 0x00, 0x2A}
	assert.Equal(t, "000042", sas.FromSamples(xof, 6))
}

// Both samples fall in the rejection zone; the first sample is used modulo M
// even though that value is biased.
func TestFromSamples_DoubleRejectionFallsBackToFirstSample(t *testing.T) {
	xof := [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xF1, 0x3D, 0x80}
	assert.Equal(t, "967295", sas.FromSamples(xof, 6))
}
