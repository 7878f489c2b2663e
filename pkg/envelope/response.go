// Package envelope defines the request and response envelopes exchanged over COMMS.
package envelope

import (
	"errors"

	"github.com/morezero/comms-transport/pkg/errmodel"
)

// ErrEmptyResponse is returned by Result for an envelope carrying neither data nor error.
var ErrEmptyResponse = errors.New("response carries neither data nor error")

// NatsResponse is the reply to a COMMS request: either Data or Error is set. The constructors are
// the only supported way to build one; when both fields are present the error wins.
type NatsResponse[T any, R errmodel.Reason] struct {
	Error *errmodel.ErrorModel[R] `json:"error,omitempty"`
	Data  *T                      `json:"data,omitempty"`
}

// NewResponse wraps a successful result.
func NewResponse[T any, R errmodel.Reason](data T) *NatsResponse[T, R] {
	return &NatsResponse[T, R]{Data: &data}
}

// WithError converts a domain error into a failed response. requestor and request are optional.
func WithError[T any, R errmodel.Reason](err errmodel.ToErrorModel[R], requestor *int64, request *string) *NatsResponse[T, R] {
	return &NatsResponse[T, R]{Error: err.ToErrorModel(requestor, request)}
}

// NewStandardResponse wraps a successful result for services using the standard reason set.
func NewStandardResponse[T any](data T) *NatsResponse[T, errmodel.ErrorReason] {
	return NewResponse[T, errmodel.ErrorReason](data)
}

// StandardWithError converts a standard domain error, such as *errmodel.StandardError, into a
// failed response.
func StandardWithError[T any](err errmodel.ToErrorModel[errmodel.ErrorReason], requestor *int64, request *string) *NatsResponse[T, errmodel.ErrorReason] {
	return WithError[T](err, requestor, request)
}

// FromModel wraps an already built ErrorModel.
func FromModel[T any, R errmodel.Reason](model *errmodel.ErrorModel[R]) *NatsResponse[T, R] {
	return &NatsResponse[T, R]{Error: model}
}

// IsError reports whether the response describes a failure.
func (r *NatsResponse[T, R]) IsError() bool {
	return r.Error != nil
}

// Ambiguous reports whether both fields are set, which only manual construction can produce.
func (r *NatsResponse[T, R]) Ambiguous() bool {
	return r.Error != nil && r.Data != nil
}

// Result returns the payload, the error model (as an error) when present, or ErrEmptyResponse.
func (r *NatsResponse[T, R]) Result() (T, error) {
	var zero T
	if r.Error != nil {
		return zero, r.Error
	}
	if r.Data == nil {
		return zero, ErrEmptyResponse
	}
	return *r.Data, nil
}
