// internal/game/errors.go
package game

import "errors"

// Code is a machine-readable rejection reason returned to clients.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeSessionNotFound   Code = "SESSION_NOT_FOUND"
	CodeSessionNotPlaying Code = "SESSION_NOT_PLAYING"
	CodeCardNotFound      Code = "CARD_NOT_FOUND"
	CodeCardNotInHand     Code = "CARD_NOT_IN_HAND"
	CodeNotSeated         Code = "NOT_SEATED"
	CodeNotSessionAdmin   Code = "NOT_SESSION_ADMIN"
	CodeInvalidTransition Code = "INVALID_STATUS_TRANSITION"
	CodeSessionFull       Code = "SESSION_FULL"
	CodeAlreadySeated     Code = "ALREADY_SEATED"
	CodeNotEnoughPlayers  Code = "NOT_ENOUGH_PLAYERS"
	CodeNoShurikens       Code = "NO_SHURIKENS"
	CodeShurikenRequested Code = "SHURIKEN_ALREADY_REQUESTED"
	CodeInvalidAction     Code = "INVALID_ACTION"
	CodeInvalidOptions    Code = "INVALID_OPTIONS"
	CodeDealExhausted     Code = "DEAL_EXHAUSTED"
	CodeStorage           Code = "STORAGE"
)

// Error is a rejected action. Message is safe to show to players.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a rejection with a code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a rejection that wraps an underlying cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons; only the code is compared.
var (
	ErrSessionNotFound  = NewError(CodeSessionNotFound, "session not found")
	ErrSessionNotActive = NewError(CodeSessionNotPlaying, "session is not in play")
	ErrCardNotFound     = NewError(CodeCardNotFound, "card not found in your hand")
	ErrCardNotInHand    = NewError(CodeCardNotInHand, "card was already played or discarded")
	ErrNotSeated        = NewError(CodeNotSeated, "you are not seated in this session")
	ErrNotAdmin         = NewError(CodeNotSessionAdmin, "only the session admin can do that")
)

// CodeOf extracts the rejection code from err, or CodeUnknown if err is not a rejection.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsRejection reports whether err is a validation-level rejection rather than a fault.
func IsRejection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code != CodeStorage && e.Code != CodeDealExhausted
}
