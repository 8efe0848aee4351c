package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// keystoreFormatVersion is the newest blob layout this build can open.
const keystoreFormatVersion = 1

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed file has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// kdfParams are the scrypt cost parameters used when sealing.
type kdfParams struct{ N, R, P int }

var defaultKDF = kdfParams{N: 1 << 15, R: 8, P: 1}

// seal derives a key from passphrase and encrypts raw into a JSON blob. The
// salt is fresh per call so the fixed AEAD nonce is never reused under one key.
func seal(passphrase string, raw []byte, kp kdfParams) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, oops.Wrapf(err, "reading salt")
	}
	aead, err := deriveAEAD(passphrase, salt[:], kp)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(blob{
		V:      keystoreFormatVersion,
		Salt:   salt[:],
		N:      kp.N,
		R:      kp.R,
		P:      kp.P,
		Cipher: ct,
	})
}

// open reverses seal.
func open(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, oops.Wrapf(err, "parsing keystore")
	}
	if bl.V > keystoreFormatVersion {
		return nil, oops.Errorf("unsupported keystore version %d", bl.V)
	}
	aead, err := deriveAEAD(passphrase, bl.Salt, kdfParams{N: bl.N, R: bl.R, P: bl.P})
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

type aead interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

func deriveAEAD(passphrase string, salt []byte, kp kdfParams) (aead, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, kp.N, kp.R, kp.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, oops.Wrapf(err, "deriving keystore key")
	}
	a, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, oops.Wrapf(err, "initialising cipher")
	}
	return a, nil
}
