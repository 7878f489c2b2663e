// Package errmodel implements the structured error model carried by every failed COMMS reply:
// a canonical Status, a numeric code, a human message and an ordered list of ErrorDetails whose
// reason type is supplied by each producing domain.
package errmodel

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Status is the closed set of canonical outcome categories shared by all error models.
// Each value equals the canonical gRPC code, which is also the wire status field.
type Status int32

const (
	StatusOK                 = Status(codes.OK)
	StatusCanceled           = Status(codes.Canceled)
	StatusUnknown            = Status(codes.Unknown)
	StatusInvalidArgument    = Status(codes.InvalidArgument)
	StatusDeadlineExceeded   = Status(codes.DeadlineExceeded)
	StatusNotFound           = Status(codes.NotFound)
	StatusAlreadyExists      = Status(codes.AlreadyExists)
	StatusPermissionDenied   = Status(codes.PermissionDenied)
	StatusResourceExhausted  = Status(codes.ResourceExhausted)
	StatusFailedPrecondition = Status(codes.FailedPrecondition)
	StatusAborted            = Status(codes.Aborted)
	StatusOutOfRange         = Status(codes.OutOfRange)
	StatusUnimplemented      = Status(codes.Unimplemented)
	StatusInternal           = Status(codes.Internal)
	StatusUnavailable        = Status(codes.Unavailable)
	StatusDataLoss           = Status(codes.DataLoss)
	StatusUnauthenticated    = Status(codes.Unauthenticated)
)

// ErrUnknownStatus is returned when a wire value does not name a Status.
var ErrUnknownStatus = errors.New("unknown status")

var statusNames = map[Status]string{
	StatusOK:                 "OK",
	StatusCanceled:           "CANCELLED",
	StatusUnknown:            "UNKNOWN",
	StatusInvalidArgument:    "INVALID_ARGUMENT",
	StatusDeadlineExceeded:   "DEADLINE_EXCEEDED",
	StatusNotFound:           "NOT_FOUND",
	StatusAlreadyExists:      "ALREADY_EXISTS",
	StatusPermissionDenied:   "PERMISSION_DENIED",
	StatusResourceExhausted:  "RESOURCE_EXHAUSTED",
	StatusFailedPrecondition: "FAILED_PRECONDITION",
	StatusAborted:            "ABORTED",
	StatusOutOfRange:         "OUT_OF_RANGE",
	StatusUnimplemented:      "UNIMPLEMENTED",
	StatusInternal:           "INTERNAL",
	StatusUnavailable:        "UNAVAILABLE",
	StatusDataLoss:           "DATA_LOSS",
	StatusUnauthenticated:    "UNAUTHENTICATED",
}

var statusByName = func() map[string]Status {
	m := make(map[string]Status, len(statusNames))
	for s, name := range statusNames {
		m[name] = s
	}
	return m
}()

// Statuses returns every Status in wire order.
func Statuses() []Status {
	out := make([]Status, 0, len(statusNames))
	for s := StatusOK; s <= StatusUnauthenticated; s++ {
		out = append(out, s)
	}
	return out
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(v int32) (Status, error) {
	s := Status(v)
	if _, ok := statusNames[s]; !ok {
		return StatusUnknown, fmt.Errorf("%w: %d", ErrUnknownStatus, v)
	}
	return s, nil
}

// StatusFromGRPC maps a gRPC code onto a Status. Codes outside the canonical set map to StatusUnknown.
func StatusFromGRPC(c codes.Code) Status {
	s, err := ParseStatus(int32(c))
	if err != nil {
		return StatusUnknown
	}
	return s
}

// Wire returns the integer carried in ErrorReply.Status.
func (s Status) Wire() int32 { return int32(s) }

// GRPCCode returns the equivalent gRPC code.
func (s Status) GRPCCode() codes.Code { return codes.Code(s) }

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int32(s))
}

// MarshalJSON encodes the Status as its wire integer.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(int32(s))
}

// UnmarshalJSON accepts either the wire integer or the UPPER_SNAKE_CASE name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var v int32
	if err := json.Unmarshal(data, &v); err == nil {
		parsed, err := ParseStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, string(data))
	}
	parsed, ok := statusByName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
	*s = parsed
	return nil
}
