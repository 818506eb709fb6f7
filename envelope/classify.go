package envelope

// Kind categorizes a shim failure. The numeric kind never crosses the wire
// contract; user-facing behavior stays message-text compatible with the
// original console.
type Kind int

const (
	// KindSuccess indicates a usable upstream payload.
	KindSuccess Kind = iota
	// KindValidation indicates a required parameter was missing or malformed
	// before any I/O happened.
	KindValidation
	// KindUpstreamBusiness indicates the DCE engine returned a structured
	// business error ({message} or {error:{code,message}}).
	KindUpstreamBusiness
	// KindUpstreamTransport indicates a network failure or an unexpected
	// upstream shape.
	KindUpstreamTransport
	// KindPrecondition indicates a safety guard rejected the operation
	// (missing admin policy, missing alias, capacity, duplicate lease).
	KindPrecondition
	// KindInternal indicates an unrecognized action or another defect in the
	// shim itself.
	KindInternal
)

// DCE error codes with dedicated user-facing messages.
const (
	CodeServerError   = "ServerError"
	CodeAlreadyExists = "AlreadyExistsError"

	// NoAccountsSentinel is the exact ServerError message the DCE engine
	// emits when the account pool is exhausted. Matched verbatim.
	NoAccountsSentinel = "No Available accounts at this moment"
)

// Classification is the result of inspecting a decoded upstream payload.
type Classification struct {
	Kind Kind
	// Code is the structured error code, when present.
	Code string
	// Message is the upstream error message, when present.
	Message string
	// Detail is the raw value to surface as the envelope's errorObject.
	Detail any
}

// Classify inspects a decoded DCE response and reports whether it is a
// success payload, a {message} error, or an {error:{code,message}} error.
// Everything else (arrays, plain objects, raw strings from non-JSON bodies)
// classifies as success; array-ness checks are the caller's concern.
func Classify(payload any) Classification {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Classification{Kind: KindSuccess}
	}
	if msg, ok := obj["message"]; ok {
		return Classification{
			Kind:    KindUpstreamBusiness,
			Message: asString(msg),
			Detail:  msg,
		}
	}
	if errVal, ok := obj["error"]; ok {
		errObj, _ := errVal.(map[string]any)
		return Classification{
			Kind:    KindUpstreamBusiness,
			Code:    asString(errObj["code"]),
			Message: asString(errObj["message"]),
			Detail:  errVal,
		}
	}
	return Classification{Kind: KindSuccess}
}

// UpstreamMessage reports whether the payload carries a top-level message
// field, returning its raw value for use as the errorObject.
func UpstreamMessage(payload any) (any, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	msg, ok := obj["message"]
	return msg, ok
}

// UpstreamError reports whether the payload carries a structured
// {error:{code,message}} field.
func UpstreamError(payload any) (code string, message string, detail any, ok bool) {
	obj, isObj := payload.(map[string]any)
	if !isObj {
		return "", "", nil, false
	}
	errVal, present := obj["error"]
	if !present {
		return "", "", nil, false
	}
	errObj, _ := errVal.(map[string]any)
	return asString(errObj["code"]), asString(errObj["message"]), errVal, true
}

// LeaseCreateErrorMessage maps a structured lease-creation error to the
// console's user-facing text. This table is an external contract; the
// strings must not change.
func LeaseCreateErrorMessage(code, message, user string) string {
	switch code {
	case CodeServerError:
		if message == NoAccountsSentinel {
			return "No more free AWS accounts available."
		}
		return "Failed to create lease for " + user + "."
	case CodeAlreadyExists:
		return "Found already existing lease for " + user + "."
	default:
		return "Failed to create lease for " + user + "."
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
