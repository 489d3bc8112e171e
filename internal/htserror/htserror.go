// Package htserror defines the htsget error taxonomy and writes
// protocol-shaped JSON error responses.
package htserror

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/jdidion/htsget-server/internal/htslog"
)

// Error kinds reported in the "error" field of the response body.
const (
	KindNotFound             = "NotFound"
	KindUnsupportedMediaType = "UnsupportedMediaType"
	KindInvalidInput         = "InvalidInput"
	KindPermissionDenied     = "PermissionDenied"
	KindFormatError          = "FormatError"
	KindUnknown              = "UnknownError"
)

const errorContentType = "application/json"

// Error is an htsget protocol error: an HTTP status code, a kind for
// the response body, and a human-readable message.
type Error struct {
	Code    int
	Kind    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

type errorContainer struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorBody struct {
	Htsget errorContainer `json:"htsget"`
}

// NotFound reports an unresolvable route, record or stored object.
func NotFound(msg string) *Error {
	if msg == "" {
		msg = "The resource requested was not found"
	}
	return &Error{Code: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

// UnsupportedMediaType reports an Accept header this server cannot satisfy.
func UnsupportedMediaType(mediaType string) *Error {
	return &Error{
		Code:    http.StatusUnsupportedMediaType,
		Kind:    KindUnsupportedMediaType,
		Message: "The requested media type is unsupported: " + mediaType,
	}
}

// InvalidInput reports a malformed request parameter.
func InvalidInput(msg string) *Error {
	return &Error{Code: http.StatusBadRequest, Kind: KindInvalidInput, Message: msg}
}

// PermissionDenied reports a request the caller is not authorized to make.
func PermissionDenied(msg string) *Error {
	return &Error{Code: http.StatusForbidden, Kind: KindPermissionDenied, Message: msg}
}

// FormatError reports a fatal binary-parse violation, such as a
// malformed BGZF block header. It is never downgraded to a guess.
func FormatError(msg string) *Error {
	return &Error{Code: http.StatusInternalServerError, Kind: KindFormatError, Message: msg}
}

// Unknown wraps an unrecognized failure, preserving its message as cause.
func Unknown(cause error) *Error {
	msg := "Internal server error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    http.StatusInternalServerError,
		Kind:    KindUnknown,
		Message: msg,
		cause:   cause,
	}
}

// Coerce returns err as an *Error, wrapping anything unrecognized as
// UnknownError.
func Coerce(err error) *Error {
	var hErr *Error
	if errors.As(err, &hErr) {
		return hErr
	}
	return Unknown(err)
}

// Write maps err onto the response: the error's HTTP status, an
// application/json content type, and the htsget error body.
func Write(writer http.ResponseWriter, err error) {
	hErr := Coerce(err)
	writer.Header().Set("Content-Type", errorContentType)
	writer.WriteHeader(hErr.Code)
	body := errorBody{Htsget: errorContainer{Error: hErr.Kind, Message: hErr.Message}}
	if encErr := json.NewEncoder(writer).Encode(body); encErr != nil {
		log.Error("writing error response: %v", encErr)
	}
}
