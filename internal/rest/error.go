package rest

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindPolicy is a local refusal: read-only connection or missing capability.
	KindPolicy Kind = iota + 1
	KindNotConnected
	KindTimeout
	KindNetwork
	KindAuth
	KindNotFound
	KindUnprocessable
	KindServerError
	KindStatus
	KindEmpty
	KindDecode
	// KindDomain carries the server's own error.msg from a successful response.
	KindDomain
)

var kindNames = map[Kind]string{
	KindPolicy:        "policy",
	KindNotConnected:  "not-connected",
	KindTimeout:       "timeout",
	KindNetwork:       "network",
	KindAuth:          "auth",
	KindNotFound:      "not-found",
	KindUnprocessable: "unprocessable",
	KindServerError:   "server-error",
	KindStatus:        "status",
	KindEmpty:         "empty",
	KindDecode:        "decode",
	KindDomain:        "domain",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Messages callers and users match on.
const (
	MsgReadOnly      = "Graphium connection is set to read-only!"
	MsgNotConnected  = "No connection selected"
	MsgTimeout       = "Timeout"
	MsgAuthRequired  = "AuthenticationRequiredError"
	MsgNotFound      = "404 ContentNotFoundError"
	MsgUnprocessable = "UnprocessableEntity"
	MsgServerError   = "500 InternalServerError"
	MsgEmpty         = "No error but empty response"
)

// Error is the outcome of every expected failure of a REST call.
type Error struct {
	Kind   Kind
	Msg    string
	Status int
}

func (e *Error) Error() string {
	return e.Msg
}

// Envelope renders the error in the {"error":{"msg":...}} shape.
func (e *Error) Envelope() map[string]any {
	return map[string]any{"error": map[string]any{"msg": e.Msg}}
}

// Envelope renders any error in the {"error":{"msg":...}} shape.
func Envelope(err error) map[string]any {
	var restErr *Error
	if errors.As(err, &restErr) {
		return restErr.Envelope()
	}
	return (&Error{Msg: err.Error()}).Envelope()
}

// EnvelopeJSON is Envelope marshaled to JSON.
func EnvelopeJSON(err error) []byte {
	data, _ := json.Marshal(Envelope(err))
	return data
}

// IsKind reports whether err is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var restErr *Error
	return errors.As(err, &restErr) && restErr.Kind == k
}

// KindOf returns the kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var restErr *Error
	if errors.As(err, &restErr) {
		return restErr.Kind
	}
	return 0
}

func newError(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// Unsupported is the policy error for a capability the server lacks.
func Unsupported(server, feature string) *Error {
	return newError(KindPolicy, fmt.Sprintf("Server '%s' does not support %s!", server, feature))
}
