package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// FailureKind tells apart the reasons a call did not succeed.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindTimeout
	KindNetwork
	KindHTTP
	KindAuth
	KindEncoding
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindAuth:
		return "auth"
	case KindEncoding:
		return "encoding"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Result is the normalized outcome of every call made through the Client.
// Callers branch on Success only; failures never surface as Go errors or panics.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message null.String     `json:"message"`
	Error   string          `json:"error,omitempty"`
	Status  int             `json:"status,omitempty"`
	Kind    FailureKind     `json:"-"`
}

// Decode unmarshals the result data into v.
// A nested {success, data} envelope is unwrapped first. Empty data leaves v untouched.
func (r Result) Decode(v interface{}) error {
	data := unwrapData(r.Data)
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decoding response data")
	}
	return nil
}

// Statuses maps HTTP statuses to the sentinel errors a package reports for them.
type Statuses map[int]error

// NotFound maps 404 to err.
func NotFound(err error) Statuses {
	return Statuses{http.StatusNotFound: err}
}

// Into decodes a successful result into v; a nil v only checks success.
// A failed result whose status is in sentinels yields that sentinel wrapped
// with the server message. Any other failure yields Err() wrapped with action.
func (r Result) Into(v interface{}, action string, sentinels Statuses) error {
	if !r.Success {
		if err, ok := sentinels[r.Status]; ok && err != nil {
			return errors.Wrap(err, r.Error)
		}
		return errors.Wrap(r.Err(), action)
	}
	if v == nil {
		return nil
	}
	return errors.Wrap(r.Decode(v), action)
}

// Err returns nil for a successful result, an *Error otherwise.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Status: r.Status, Kind: r.Kind, Message: r.Error}
}

// Error is the error view of a failed Result.
type Error struct {
	Status  int
	Kind    FailureKind
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// IsStatus reports whether err is an *Error carrying the given HTTP status.
func IsStatus(err error, status int) bool {
	e, ok := errors.Cause(err).(*Error)
	return ok && e.Status == status
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind FailureKind) bool {
	e, ok := errors.Cause(err).(*Error)
	return ok && e.Kind == kind
}

type envelope struct {
	Success bool
	Data    json.RawMessage
	Message null.String
}

// asEnvelope reports whether payload already has the {success, data} shape.
func asEnvelope(payload json.RawMessage) (envelope, bool) {
	var obj map[string]json.RawMessage
	if len(payload) == 0 || json.Unmarshal(payload, &obj) != nil {
		return envelope{}, false
	}
	rawSuccess, hasSuccess := obj["success"]
	rawData, hasData := obj["data"]
	if !(hasSuccess && hasData) {
		return envelope{}, false
	}

	var env envelope
	if err := json.Unmarshal(rawSuccess, &env.Success); err != nil {
		return envelope{}, false
	}
	env.Data = nullToEmpty(rawData)
	var msg string
	if json.Unmarshal(obj["message"], &msg) == nil && msg != "" {
		env.Message = null.StringFrom(msg)
	}
	return env, true
}

// unwrapData strips nested envelopes, eg: {"success": true, "data": {"success": true, "data": [...]}}
func unwrapData(data json.RawMessage) json.RawMessage {
	for i := 0; i < 3; i++ {
		env, ok := asEnvelope(data)
		if !ok {
			break
		}
		data = env.Data
	}
	return nullToEmpty(data)
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}
