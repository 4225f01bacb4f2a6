package service

import "fmt"

// Kind classifies a failed operation.
type Kind int

const (
	// KindInternal means the request was valid but could not be served.
	KindInternal Kind = iota
	// KindBadRequest means the caller sent missing or malformed input.
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Error is the failure outcome of a service operation. Message is safe to
// return to the caller; Err keeps the underlying cause for logs and errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest builds a caller-input error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps err as a server-side failure. The message is err's description.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}
