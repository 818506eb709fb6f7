// Package envelope builds the uniform response wrapper returned by every
// SAfE API shim and classifies the heterogeneous response shapes of the
// upstream DCE leasing engine.
//
// The wire contract with the web console is a JSON-encoded string (not a
// structured object): the console JSON.parses every shim response. Keep the
// double encoding; removing it is a breaking change for the console.
package envelope

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Status values of the canonical envelope.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultErrorMessage is used when a caller supplies no message.
const DefaultErrorMessage = "Internal error."

type successEnvelope struct {
	Status         string `json:"status"`
	Body           any    `json:"body"`
	SuccessMessage string `json:"successMessage,omitempty"`
}

type errorEnvelope struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ErrorObject any    `json:"errorObject"`
}

// Success encodes a success envelope. The successMessage field is only
// emitted when non-empty. A nil body is rendered as an empty object so the
// console never sees a JSON null where it expects an object.
func Success(successMessage string, body any) string {
	if body == nil {
		body = struct{}{}
	}
	return encode(successEnvelope{
		Status:         StatusSuccess,
		Body:           body,
		SuccessMessage: successMessage,
	})
}

// Outcome reports whether an encoded envelope carries success status and,
// when it does not, its user-facing message. Used to settle action log
// entries after dispatch.
func Outcome(encoded string) (success bool, message string) {
	var env struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(encoded), &env); err != nil {
		return false, "unparseable response envelope"
	}
	return env.Status == StatusSuccess, env.Message
}

// Error encodes an error envelope. The message is the human-readable text
// surfaced by the console; errorObject carries the raw upstream detail for
// diagnostics. A nil errorObject is rendered as an empty object.
func Error(message string, errorObject any) string {
	if message == "" {
		message = DefaultErrorMessage
	}
	if errorObject == nil {
		errorObject = struct{}{}
	}
	return encode(errorEnvelope{
		Status:      StatusError,
		Message:     message,
		ErrorObject: errorObject,
	})
}

// encode marshals without HTML escaping so message text reaches the console
// byte-for-byte. Marshal failures degrade to a static internal error
// envelope rather than an empty response.
func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return `{"status":"error","message":"Internal error.","errorObject":{}}`
	}
	// json.Encoder appends a trailing newline.
	return strings.TrimSuffix(buf.String(), "\n")
}
