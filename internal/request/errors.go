package request

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies why a request could not be parsed.
type ParseErrorKind int

const (
	InvalidFormat ParseErrorKind = iota
	InvalidMethod
	InvalidRequestLine
	InvalidHeader
	MissingRequiredHeaders
	URLParse
)

func (k ParseErrorKind) String() string {
	switch k {
	case InvalidFormat:
		return "invalid request format"
	case InvalidMethod:
		return "invalid HTTP method"
	case InvalidRequestLine:
		return "invalid request line"
	case InvalidHeader:
		return "invalid header format"
	case MissingRequiredHeaders:
		return "missing required headers"
	case URLParse:
		return "error parsing URL"
	default:
		return fmt.Sprintf("unknown parse error: %d", int(k))
	}
}

type ParseError struct {
	Kind   ParseErrorKind
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches any *ParseError of the same kind, so the Err* values below can
// be used with errors.Is.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind && t.Detail == ""
}

var (
	ErrInvalidFormat          = &ParseError{Kind: InvalidFormat}
	ErrInvalidMethod          = &ParseError{Kind: InvalidMethod}
	ErrInvalidRequestLine     = &ParseError{Kind: InvalidRequestLine}
	ErrInvalidHeader          = &ParseError{Kind: InvalidHeader}
	ErrMissingRequiredHeaders = &ParseError{Kind: MissingRequiredHeaders}
	ErrURLParse               = &ParseError{Kind: URLParse}
)

var (
	// ErrEmptyRequest is returned by ReadFrom when the peer closed its side
	// before sending a single byte.
	ErrEmptyRequest = errors.New("connection closed before any request bytes")
	// ErrRequestTooLarge is returned by ReadFrom when the request does not
	// fit in the configured limit.
	ErrRequestTooLarge = errors.New("request exceeds maximum size")
)
