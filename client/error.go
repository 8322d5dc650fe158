package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnexpectedStatusCode is the default Err of a [StatusError]
	// raised when a status fails the configured validation.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrBodyTooLarge is reported when a response exceeds the read cap.
	ErrBodyTooLarge = errors.New("response body too large")
	// ErrUnsupportedFormBody is returned when a body cannot be form encoded.
	ErrUnsupportedFormBody = errors.New("unsupported form body")
	// ErrTransportConflict is returned by [Build] when [WithTransport] is
	// combined with options that configure the default HTTP transport.
	ErrTransportConflict = errors.New("custom transport conflicts with http options")

	// ErrRemote matches every [*RemoteError] via errors.Is.
	ErrRemote = errors.New("remote error")
	// ErrTransport matches every [*TransportError] via errors.Is.
	ErrTransport = errors.New("transport error")
)

// StatusError is reported by a [Transport] that obtained a response
// but refused it.
type StatusError struct {
	Response *RawResponse
	Err      error
}

func (e *StatusError) Error() string {
	if e.Response == nil {
		return fmt.Sprintf("%v: no response", e.Err)
	}
	return fmt.Sprintf("%v: %d", e.Err, e.Response.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// ErrorResult is the uniform failure shape. It never carries data.
type ErrorResult struct {
	OK      bool   `json:"ok"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RemoteError is returned when the server answered but the transport
// classified the answer as a failure. Code is the remote status and
// Message the body's "message" field, if any.
type RemoteError struct {
	ErrorResult
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: %d: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// TransportError is returned when no HTTP response was obtained at all.
// Code is always 500.
type TransportError struct {
	ErrorResult
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// AsErrorResult extracts the [ErrorResult] carried by err, if any.
func AsErrorResult(err error) (ErrorResult, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.ErrorResult, true
	}

	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.ErrorResult, true
	}

	return ErrorResult{}, false
}

// handleError maps a transport failure onto the two error kinds.
func handleError(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Response != nil {
		return &RemoteError{
			ErrorResult: ErrorResult{
				Code:    statusErr.Response.Status,
				Message: remoteMessage(statusErr.Response.Body),
			},
			Err: err,
		}
	}

	return &TransportError{
		ErrorResult: ErrorResult{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		},
		Err: err,
	}
}

// remoteMessage returns the "message" field of a JSON object body,
// or the empty string.
func remoteMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	switch msg := payload.Message.(type) {
	case nil:
		return ""
	case string:
		return msg
	default:
		return fmt.Sprint(msg)
	}
}
