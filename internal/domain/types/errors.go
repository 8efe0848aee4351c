package types

import (
	"errors"
	"fmt"
)

// Code is the machine-readable reason carried by every protocol failure.
type Code string

const (
	CodeBadParam       Code = "bad_param"
	CodeUnsupportedAlg Code = "unsupported_alg"
	CodeProtocol       Code = "protocol"
	CodeTxSend         Code = "tx_send"
	CodeTxClosed       Code = "tx_closed"
	CodeCanceled       Code = "canceled"

	CodeTimeoutWaitCommit      Code = "timeout_wait_commit"
	CodeTimeoutWaitOffer       Code = "timeout_wait_offer"
	CodeTimeoutWaitReveal      Code = "timeout_wait_reveal"
	CodeTimeoutWaitPeerConfirm Code = "timeout_wait_peer_confirm"
	CodeTimeoutWaitSAS         Code = "timeout_wait_sas"

	// Authentication failures. These end a run in MALLORY.
	CodeCommitMismatch Code = "commit_mismatch"
	CodeSASRejected    Code = "sas_rejected"
	CodePeerMismatch   Code = "peer_mismatch"
)

// IsMallory reports whether c indicates a suspected active attacker or an
// explicit human rejection rather than infrastructure trouble.
func (c Code) IsMallory() bool {
	switch c {
	case CodeCommitMismatch, CodeSASRejected, CodePeerMismatch:
		return true
	}
	return false
}

// IsTimeout reports whether c is one of the per-phase timeout codes.
func (c Code) IsTimeout() bool {
	switch c {
	case CodeTimeoutWaitCommit, CodeTimeoutWaitOffer, CodeTimeoutWaitReveal,
		CodeTimeoutWaitPeerConfirm, CodeTimeoutWaitSAS:
		return true
	}
	return false
}

var (
	// ErrNotConnected is returned by a live transport while its link is down.
	// Callers may retry.
	ErrNotConnected = errors.New("transport not connected")
	// ErrTransportClosed is returned once a transport has been closed.
	ErrTransportClosed = errors.New("transport closed")
	// ErrUnknownPolicy is returned for an unrecognised liveness policy name.
	ErrUnknownPolicy = errors.New("unknown policy")
)

// Error is a coded failure. Op names the step that failed; Err is the
// underlying cause, if any.
type Error struct {
	Code Code
	Op   string
	Err  error
}

// NewError returns an *Error with the given code, operation and cause.
func NewError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code, so callers can write
// errors.Is(err, &Error{Code: CodeProtocol}).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
