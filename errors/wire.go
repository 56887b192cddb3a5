package errors

import "errors"

// Wire codes reported to clients inside error envelopes.
const (
	CodeRejected = "rejected"
	CodeNotFound = "not_found"
	CodeIO       = "io_error"
	CodeInternal = "internal"
)

// IsRejected reports whether err is a policy rejection: the request was
// refused and no server state was touched.
func IsRejected(err error) bool {
	return errors.Is(err, ErrEmptyNickname) ||
		errors.Is(err, ErrNicknameTaken) ||
		errors.Is(err, ErrEmptyRoomName)
}

// MapToWireCode translates the error taxonomy into a transport status code.
// Persistence failures surface as CodeIO so callers can tell a refused
// request apart from a failed one.
func MapToWireCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsRejected(err):
		return CodeRejected
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrSessionNotFound):
		return CodeNotFound
	case errors.Is(err, ErrPersistence):
		return CodeIO
	default:
		return CodeInternal
	}
}
