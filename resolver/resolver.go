// Package resolver defines the AppSync resolver event consumed by every
// API shim and helpers for decoding its parameter payload.
package resolver

import (
	"encoding/json"
	"errors"
)

// ErrMalformedParams indicates the paramJson field does not contain a
// valid JSON object.
var ErrMalformedParams = errors.New("paramJson contains malformed JSON")

// Event is the payload AppSync delivers to a Lambda data source.
// Arguments carries the GraphQL field arguments; Identity is present when
// the call was made by an authenticated Cognito user.
type Event struct {
	Arguments *Arguments `json:"arguments"`
	Identity  *Identity  `json:"identity"`
}

// Arguments carries the action to dispatch and its parameters as a JSON
// string. paramJson is a string rather than a nested object so the GraphQL
// schema can stay fixed while actions evolve their parameter sets.
type Arguments struct {
	Action    string `json:"action"`
	ParamJSON string `json:"paramJson"`
}

// Identity describes the authenticated caller.
type Identity struct {
	Username string         `json:"username"`
	Claims   map[string]any `json:"claims,omitempty"`
	Groups   []string       `json:"groups,omitempty"`
}

// Username returns the authenticated caller's username, or "" for
// unauthenticated calls.
func (e Event) Username() string {
	if e.Identity == nil {
		return ""
	}
	return e.Identity.Username
}

// Params holds the decoded paramJson object.
type Params map[string]any

// ParseParams decodes a paramJson string. An empty string decodes to an
// empty Params; anything that is not a JSON object is ErrMalformedParams.
func ParseParams(raw string) (Params, error) {
	if raw == "" {
		return Params{}, nil
	}
	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, ErrMalformedParams
	}
	if p == nil {
		p = Params{}
	}
	return p, nil
}

// String returns the string value for key. Missing keys, empty strings and
// non-string values all report false, matching how the original console
// treats absent parameters.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Float returns the numeric value for key. JSON numbers decode to float64.
func (p Params) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Int64 returns the numeric value for key truncated to an int64.
func (p Params) Int64(key string) (int64, bool) {
	f, ok := p.Float(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// StringSlice returns the array value for key with every element converted
// to a string. Non-array values and arrays with non-string elements report
// false.
func (p Params) StringSlice(key string) ([]string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
