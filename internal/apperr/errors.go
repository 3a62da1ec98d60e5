// Package apperr classifies failures so transport layers can map them to responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the failure class of an Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration is a missing secret, credential or setting. Fatal for the request.
	KindConfiguration
	// KindAuthentication is a webhook whose signature did not verify.
	KindAuthentication
	// KindValidation is a malformed payload.
	KindValidation
	// KindUnsupported is an event or action this service does not process.
	KindUnsupported
	// KindNotFound is a referenced remote resource that does not exist.
	KindNotFound
	// KindUpstream is any failed call to a third-party API or store.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindUnsupported:
		return "unsupported"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration reports a missing or invalid setting.
func Configuration(op string, err error) error { return newError(KindConfiguration, op, err) }

// Authentication reports a request that failed origin verification.
func Authentication(op string, err error) error { return newError(KindAuthentication, op, err) }

// Validation reports a malformed request.
func Validation(op string, err error) error { return newError(KindValidation, op, err) }

// Unsupported reports an event or action that is intentionally not handled.
func Unsupported(op string, err error) error { return newError(KindUnsupported, op, err) }

// NotFound reports a missing remote resource.
func NotFound(op string, err error) error { return newError(KindNotFound, op, err) }

// Upstream reports a failed third-party call.
func Upstream(op string, err error) error { return newError(KindUpstream, op, err) }

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to the status code a synchronous handler should answer with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindUnsupported:
		return http.StatusMethodNotAllowed
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
