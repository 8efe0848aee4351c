package commit

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"hash"

	"github.com/samber/oops"
	"golang.org/x/crypto/sha3"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
)

// DomainSeparator prefixes every commitment transcript.
const DomainSeparator = "sascheck/commitment/v1"

const (
	// MinNonceSize is the smallest nonce RandomNonce and Verify accept.
	MinNonceSize = 16
	// DefaultNonceSize is the nonce length Compute generates when none is given.
	DefaultNonceSize = 32
	// DefaultLabel names the receiver's identity commitment.
	DefaultLabel = "recv-identity"
)

// Alg names the hash used for a commitment.
type Alg string

const (
	SHA3_256 Alg = "SHA3-256"
	SHA256   Alg = "SHA-256"
)

// ParseAlg maps a wire name to an Alg; the empty string selects SHA3-256.
func ParseAlg(s string) (Alg, error) {
	switch Alg(s) {
	case "", SHA3_256:
		return SHA3_256, nil
	case SHA256:
		return SHA256, nil
	}
	return "", domain.NewError(domain.CodeUnsupportedAlg, "parse commitment alg",
		oops.Errorf("unknown commitment algorithm %q", s))
}

func (a Alg) newHash() (hash.Hash, error) {
	switch a {
	case SHA3_256:
		return sha3.New256(), nil
	case SHA256:
		return sha256.New(), nil
	}
	return nil, domain.NewError(domain.CodeUnsupportedAlg, "commitment hash",
		oops.Errorf("unknown commitment algorithm %q", string(a)))
}

// Record is a computed commitment together with the private opening nonce.
type Record struct {
	Commitment []byte
	Nonce      []byte
	Alg        Alg
	Label      string
}

// Params tune Compute. A nil Nonce is generated; an empty Alg means SHA3-256.
type Params struct {
	Nonce []byte
	Alg   Alg
	Label string
}

// Opening is what the verifier holds once the committer has revealed.
type Opening struct {
	Data       []byte
	Nonce      []byte
	Commitment []byte
	Alg        Alg
	Label      string
}

// RandomNonce returns n bytes from the system CSPRNG.
func RandomNonce(n int) ([]byte, error) {
	if n < MinNonceSize {
		return nil, domain.NewError(domain.CodeBadParam, "random nonce",
			oops.Errorf("nonce length %d below minimum %d", n, MinNonceSize))
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, oops.Wrapf(err, "reading random nonce")
	}
	return b, nil
}

// Compute commits to data.
func Compute(data []byte, p Params) (Record, error) {
	alg := p.Alg
	if alg == "" {
		alg = SHA3_256
	}
	nonce := p.Nonce
	if nonce == nil {
		var err error
		if nonce, err = RandomNonce(DefaultNonceSize); err != nil {
			return Record{}, err
		}
	} else if len(nonce) < MinNonceSize {
		return Record{}, domain.NewError(domain.CodeBadParam, "compute commitment",
			oops.Errorf("nonce length %d below minimum %d", len(nonce), MinNonceSize))
	}

	sum, err := digest(alg, p.Label, data, nonce)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Commitment: sum,
		Nonce:      append([]byte(nil), nonce...),
		Alg:        alg,
		Label:      p.Label,
	}, nil
}

// Verify reports whether o.Data and o.Nonce reproduce o.Commitment under
// o.Alg and o.Label.
func Verify(o Opening) bool {
	if len(o.Nonce) < MinNonceSize || len(o.Commitment) == 0 {
		return false
	}
	alg := o.Alg
	if alg == "" {
		alg = SHA3_256
	}
	sum, err := digest(alg, o.Label, o.Data, o.Nonce)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(sum, o.Commitment) == 1
}

func digest(alg Alg, label string, data, nonce []byte) ([]byte, error) {
	h, err := alg.newHash()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(DomainSeparator)+12+len(label)+len(data)+len(nonce))
	buf = append(buf, DomainSeparator...)
	buf = crypto.AppendLP(buf, []byte(label))
	buf = crypto.AppendLP(buf, data)
	buf = crypto.AppendLP(buf, nonce)
	h.Write(buf)
	return h.Sum(nil), nil
}

// Packed is the wire form of a Record; byte fields are base64url.
type Packed struct {
	Commitment string `json:"commitment"`
	Nonce      string `json:"nonce,omitempty"`
	Alg        string `json:"alg"`
	Label      string `json:"label"`
}

// Pack encodes r for a frame. The nonce is left out unless withNonce is set,
// since it must stay private until reveal.
func (r Record) Pack(withNonce bool) Packed {
	p := Packed{
		Commitment: crypto.B64(r.Commitment),
		Alg:        string(r.Alg),
		Label:      r.Label,
	}
	if withNonce {
		p.Nonce = crypto.B64(r.Nonce)
	}
	return p
}

// Unpack decodes a Packed record.
func Unpack(p Packed) (Record, error) {
	alg, err := ParseAlg(p.Alg)
	if err != nil {
		return Record{}, err
	}
	c, err := crypto.FromB64(p.Commitment)
	if err != nil {
		return Record{}, domain.NewError(domain.CodeBadParam, "unpack commitment",
			oops.Wrapf(err, "decoding commitment"))
	}
	var nonce []byte
	if p.Nonce != "" {
		if nonce, err = crypto.FromB64(p.Nonce); err != nil {
			return Record{}, domain.NewError(domain.CodeBadParam, "unpack commitment",
				oops.Wrapf(err, "decoding nonce"))
		}
	}
	return Record{Commitment: c, Nonce: nonce, Alg: alg, Label: p.Label}, nil
}
