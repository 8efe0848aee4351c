package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sascheck/internal/crypto"
	"sascheck/internal/services/identity"
	"sascheck/internal/store"
)

const strong = "Correct-Horse-9-Battery"

func TestGenerateAndLoad(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))

	id, fp, err := svc.GenerateIdentity(strong)
	require.NoError(t, err)
	assert.Len(t, string(fp), 20)
	assert.Equal(t, crypto.IdentityFingerprint(id), fp)

	loaded, err := svc.LoadIdentity(strong)
	require.NoError(t, err)
	assert.Equal(t, id, loaded)

	again, err := svc.FingerprintIdentity(strong)
	require.NoError(t, err)
	assert.Equal(t, fp, again)
}

func TestWeakPassphrases(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	for _, p := range []string{"", "short-1A", "alllowercase-123", "ALLUPPER-1234", "NoDigitsHere-!", "NoSymbols12345"} {
		_, _, err := svc.GenerateIdentity(p)
		assert.ErrorIs(t, err, identity.ErrWeakPassphrase, p)
	}
}

func TestFingerprintWithoutIdentity(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	_, err := svc.FingerprintIdentity(strong)
	assert.ErrorIs(t, err, store.ErrNoIdentity)
}
