package domain

import (
	interfaces "sascheck/internal/domain/interfaces"
	types "sascheck/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Fingerprint    = types.Fingerprint
	Role           = types.Role
	Policy         = types.Policy
	PeerMeta       = types.PeerMeta
	Algs           = types.Algs
	Code           = types.Code
	Error          = types.Error
	Identity       = types.Identity
	VerifiedPeer   = types.VerifiedPeer
	Ed25519Public  = types.Ed25519Public
	Ed25519Private = types.Ed25519Private
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Transport       = interfaces.Transport
	LinkNotifier    = interfaces.LinkNotifier
	CloseNotifier   = interfaces.CloseNotifier
	IdentityStore   = interfaces.IdentityStore
	PeerStore       = interfaces.PeerStore
	IdentityService = interfaces.IdentityService
	Confirmer       = interfaces.Confirmer
)

const (
	RoleSender   = types.RoleSender
	RoleReceiver = types.RoleReceiver

	PolicyLive    = types.PolicyLive
	PolicyDurable = types.PolicyDurable

	CodeBadParam               = types.CodeBadParam
	CodeUnsupportedAlg         = types.CodeUnsupportedAlg
	CodeProtocol               = types.CodeProtocol
	CodeTxSend                 = types.CodeTxSend
	CodeTxClosed               = types.CodeTxClosed
	CodeCanceled               = types.CodeCanceled
	CodeTimeoutWaitCommit      = types.CodeTimeoutWaitCommit
	CodeTimeoutWaitOffer       = types.CodeTimeoutWaitOffer
	CodeTimeoutWaitReveal      = types.CodeTimeoutWaitReveal
	CodeTimeoutWaitPeerConfirm = types.CodeTimeoutWaitPeerConfirm
	CodeTimeoutWaitSAS         = types.CodeTimeoutWaitSAS
	CodeCommitMismatch         = types.CodeCommitMismatch
	CodeSASRejected            = types.CodeSASRejected
	CodePeerMismatch           = types.CodePeerMismatch
)

var (
	ErrNotConnected    = types.ErrNotConnected
	ErrTransportClosed = types.ErrTransportClosed
	ErrUnknownPolicy   = types.ErrUnknownPolicy

	NewError    = types.NewError
	CodeOf      = types.CodeOf
	ParsePolicy = types.ParsePolicy
)
