package interfaces

import (
	"context"

	domaintypes "sascheck/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// Confirmer asks the human whether the two displayed codes match.
type Confirmer interface {
	ConfirmSAS(ctx context.Context, code string) (bool, error)
}
