package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies every failure the REST boundary can report.
type Kind int

// These constants refer to the error classes callers branch on.
const (
	KindNetwork Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindServer:
		return "server"
	}

	return "unknown"
}

// Error is the single error shape produced by Client. It is decoded once, where the
// response is read, and never re-parsed by callers.
type Error struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Message string
	// Fields carries per-field validation messages when the server sent them.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("error calling %s %s: %s", e.Method, e.Path, e.Message)
	}

	return fmt.Sprintf("error calling %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}

	return false
}

// KindFor maps an HTTP status to an error kind.
func KindFor(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	}

	return KindServer
}

type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func decodeError(method, path string, status int, data []byte) *Error {
	apiErr := &Error{
		Kind:   KindFor(status),
		Status: status,
		Method: method,
		Path:   path,
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}

		apiErr.Fields = body.Errors
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	return apiErr
}
