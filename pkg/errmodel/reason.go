package errmodel

import (
	"encoding"
	"fmt"
	"regexp"
)

// Reason is the capability every domain-specific reason enumeration provides. The String form is the
// wire form and should be UPPER_SNAKE_CASE; decoding a reason from the wire additionally needs *R to
// implement encoding.TextUnmarshaler.
type Reason interface {
	comparable
	fmt.Stringer
}

var reasonPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]+[A-Z0-9]$`)

// maxReasonLen bounds the rendered reason, as for google.rpc.ErrorInfo.
const maxReasonLen = 63

// ValidReason reports whether r renders as a well-formed UPPER_SNAKE_CASE identifier.
func ValidReason[R Reason](r R) bool {
	s := r.String()
	return len(s) <= maxReasonLen && reasonPattern.MatchString(s)
}

// ParseReason decodes the wire form of a reason into R.
func ParseReason[R Reason](s string) (R, error) {
	var r R
	u, ok := any(&r).(encoding.TextUnmarshaler)
	if !ok {
		return r, fmt.Errorf("reason type %T cannot be decoded", r)
	}
	if err := u.UnmarshalText([]byte(s)); err != nil {
		return r, err
	}
	return r, nil
}

// ErrorReason is the standard reason set shared by services that do not define their own.
type ErrorReason int

const (
	ReasonUnspecified ErrorReason = iota
	ReasonInvalidRequest
	ReasonInvalidArgument
	ReasonNotFound
	ReasonAlreadyExists
	ReasonPermissionDenied
	ReasonUnauthenticated
	ReasonDatabaseError
	ReasonInternalError
	ReasonUnavailable
	ReasonTimeout
)

var errorReasonNames = map[ErrorReason]string{
	ReasonUnspecified:      "REASON_UNSPECIFIED",
	ReasonInvalidRequest:   "INVALID_REQUEST",
	ReasonInvalidArgument:  "INVALID_ARGUMENT",
	ReasonNotFound:         "NOT_FOUND",
	ReasonAlreadyExists:    "ALREADY_EXISTS",
	ReasonPermissionDenied: "PERMISSION_DENIED",
	ReasonUnauthenticated:  "UNAUTHENTICATED",
	ReasonDatabaseError:    "DATABASE_ERROR",
	ReasonInternalError:    "INTERNAL_ERROR",
	ReasonUnavailable:      "UNAVAILABLE",
	ReasonTimeout:          "TIMEOUT",
}

func (r ErrorReason) String() string {
	if s, ok := errorReasonNames[r]; ok {
		return s
	}
	return errorReasonNames[ReasonUnspecified]
}

// MarshalText implements encoding.TextMarshaler.
func (r ErrorReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ErrorReason) UnmarshalText(text []byte) error {
	for k, s := range errorReasonNames {
		if s == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown error reason %q", string(text))
}
