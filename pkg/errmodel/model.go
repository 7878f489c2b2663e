package errmodel

import (
	"fmt"
	"maps"
	"strconv"
)

// ToErrorModel converts a domain error into an ErrorModel. ErrorCode and Status must be a total
// mapping over the error's variants.
type ToErrorModel[R Reason] interface {
	ToErrorModel(requestor *int64, request *string) *ErrorModel[R]
	ErrorCode() int32
	Status() Status
}

// ErrorModel is the structured error attached to a failed reply. It is based on the Google Cloud
// API error model (https://cloud.google.com/apis/design/errors#error_model).
//
// Code and Status are kept consistent by the producer, not by the model.
type ErrorModel[R Reason] struct {
	Code    int32
	Message string
	Status  Status
	Details []ErrorDetails[R]
}

// ErrorDetails describes one cause of an error.
//
// Reason identifies the proximate cause and is unique within Domain. Domain is typically the
// registered name of the service or namespace owning the reason, e.g. "pubsub.googleapis.com".
// Metadata carries contextual pairs added by the producing code.
type ErrorDetails[R Reason] struct {
	Reason   R
	Domain   string
	Metadata map[MetaKey]string
}

// NewErrorDetails creates a detail entry. A nil metadata map is replaced by an empty one.
func NewErrorDetails[R Reason](reason R, domain string, metadata map[MetaKey]string) ErrorDetails[R] {
	if metadata == nil {
		metadata = make(map[MetaKey]string)
	}
	return ErrorDetails[R]{Reason: reason, Domain: domain, Metadata: metadata}
}

// NewErrorModel creates an ErrorModel with no details.
func NewErrorModel[R Reason](status Status, code int32, message string) *ErrorModel[R] {
	return &ErrorModel[R]{
		Code:    code,
		Message: message,
		Status:  status,
		Details: []ErrorDetails[R]{},
	}
}

// WithDetails appends a detail with empty metadata and returns a builder bound to it.
func (m *ErrorModel[R]) WithDetails(reason R, domain string) *DetailsBuilder[R] {
	m.Details = append(m.Details, NewErrorDetails(reason, domain, nil))
	return &DetailsBuilder[R]{model: m, idx: len(m.Details) - 1}
}

// Error renders the model as "STATUS (code): message".
func (m *ErrorModel[R]) Error() string {
	return fmt.Sprintf("%s (%d): %s", m.Status, m.Code, m.Message)
}

// Clone returns a deep copy, for callers that hand the model to another goroutine.
func (m *ErrorModel[R]) Clone() *ErrorModel[R] {
	out := &ErrorModel[R]{
		Code:    m.Code,
		Message: m.Message,
		Status:  m.Status,
		Details: make([]ErrorDetails[R], len(m.Details)),
	}
	for i, d := range m.Details {
		out.Details[i] = ErrorDetails[R]{Reason: d.Reason, Domain: d.Domain, Metadata: maps.Clone(d.Metadata)}
	}
	return out
}

// DetailsBuilder adds metadata to the detail created by the WithDetails call that returned it.
// Metadata can only be appended through a builder, so there is always a detail to target.
type DetailsBuilder[R Reason] struct {
	model *ErrorModel[R]
	idx   int
}

// AppendMetadata sets key on the bound detail. A repeated key overwrites the previous value.
func (b *DetailsBuilder[R]) AppendMetadata(key MetaKey, value string) *DetailsBuilder[R] {
	b.model.Details[b.idx].Metadata[key] = value
	return b
}

// WithDetails appends another detail to the same model and returns a builder bound to it.
func (b *DetailsBuilder[R]) WithDetails(reason R, domain string) *DetailsBuilder[R] {
	return b.model.WithDetails(reason, domain)
}

// Model returns the model being built.
func (b *DetailsBuilder[R]) Model() *ErrorModel[R] {
	return b.model
}

// AttachContext appends the standard request context to the bound detail: the producing service
// always, the request name and the requestor id when present.
func (b *DetailsBuilder[R]) AttachContext(service string, requestor *int64, request *string) *DetailsBuilder[R] {
	b.AppendMetadata(MetaKeyService, service)
	if request != nil {
		b.AppendMetadata(MetaKeyRequest, *request)
	}
	if requestor != nil {
		b.AppendMetadata(MetaKeyRequestor, strconv.FormatInt(*requestor, 10))
	}
	return b
}

// Ptr returns a pointer to v, for the optional requestor and request arguments.
func Ptr[T any](v T) *T {
	return &v
}
