package advisory

import "errors"

var (
	// ErrInvalidRequest: the request failed validation and never reached the provider.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInferenceFailure: the provider failed, timed out, or replied outside the schema.
	ErrInferenceFailure = errors.New("inference failure")
)

// Error is returned by every failed invocation. Kind is one of the sentinels
// above; Err is the cause.
type Error struct {
	Flow string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Flow + ": " + e.Kind.Error()
	}
	return e.Flow + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage is the notice shown to end users when a flow fails. It never
// carries provider details.
func UserMessage(flow string) string {
	switch flow {
	case FlowFertilizer:
		return "Failed to get fertilizer recommendation."
	case FlowIrrigation:
		return "Failed to get irrigation recommendation."
	}
	return "Failed to get recommendation."
}

// FieldErrors extracts the validation details of an InvalidRequest error, if any.
func FieldErrors(err error) ValidationErrors {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v
	}
	return nil
}
