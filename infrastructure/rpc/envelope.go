package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTimeout marks a call whose reply did not arrive within the deadline.
	// The outcome on the service side is unknown, not absent.
	ErrTimeout = errors.New("rpc call timed out")

	// ErrUnavailable marks a transport fault (broker unreachable, encode
	// failure) distinct from any business error.
	ErrUnavailable = errors.New("rpc transport unavailable")
)

// Envelope is the uniform wire shape for service-raised errors. It crosses
// the boundary verbatim so the caller keeps the original status code.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	ErrorKind  string `json:"error,omitempty"`
}

// RemoteError is a business error raised on the service side and rehydrated
// on the caller from its wire envelope.
type RemoteError struct {
	Envelope
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

// NewRemoteError builds a typed business error that will cross the transport
// as an envelope instead of an opaque fault.
func NewRemoteError(statusCode int, message, kind string) *RemoteError {
	return &RemoteError{Envelope{StatusCode: statusCode, Message: message, ErrorKind: kind}}
}

// AsRemote unwraps err into a RemoteError if it carries an envelope.
func AsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote, true
	}
	return nil, false
}

// coerceEnvelope turns any handler error into a wire envelope. Structured
// business errors pass through untouched; everything else becomes a generic
// internal error so raw infrastructure detail never leaks to the caller.
func coerceEnvelope(err error) *Envelope {
	if remote, ok := AsRemote(err); ok {
		env := remote.Envelope
		return &env
	}
	return &Envelope{
		StatusCode: http.StatusInternalServerError,
		Message:    "internal server error",
		ErrorKind:  "InternalError",
	}
}

// request is a single command message on the service queue.
type request struct {
	ID      string          `json:"id"`
	Cmd     string          `json:"cmd"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ReplyTo string          `json:"reply_to,omitempty"`
}

// response carries either a result or an error envelope, never both.
type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Envelope       `json:"error,omitempty"`
}
