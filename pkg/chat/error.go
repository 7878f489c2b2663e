package chat

import (
	"github.com/morezero/comms-transport/pkg/errmodel"
)

// Error domain and default service name of the chat errors.
const (
	Domain  = "runtiva.com"
	Service = "chat-persist.runtiva.com"
)

// ErrorKind selects the status and code of an Error.
type ErrorKind int

const (
	KindInvalidArgument ErrorKind = iota
	KindNotFound
	KindInternal
)

// Error is the chat service's domain error.
type Error struct {
	Kind   ErrorKind
	Reason Reason
	Msg    string
	// Service overrides the service metadata. Defaults to Service.
	Service string
	// Domain overrides the detail domain. Defaults to Domain.
	Domain string
}

// InvalidArgument reports a request the service refuses to process.
func InvalidArgument(reason Reason, msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Reason: reason, Msg: msg}
}

// NotFound reports a missing chat group.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Reason: ReasonGroupNotFound, Msg: msg}
}

// Internal reports a failure of the service itself.
func Internal(msg string) *Error {
	return &Error{Kind: KindInternal, Reason: ReasonStorageFailure, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

// ToErrorModel implements errmodel.ToErrorModel.
func (e *Error) ToErrorModel(requestor *int64, request *string) *errmodel.ErrorModel[Reason] {
	service, domain := e.Service, e.Domain
	if service == "" {
		service = Service
	}
	if domain == "" {
		domain = Domain
	}
	return errmodel.NewErrorModel[Reason](e.Status(), e.ErrorCode(), e.Msg).
		WithDetails(e.Reason, domain).
		AttachContext(service, requestor, request).
		Model()
}

func (e *Error) ErrorCode() int32 {
	switch e.Kind {
	case KindInvalidArgument:
		return 400
	case KindNotFound:
		return 404
	case KindInternal:
		return 500
	}
	panic("chat: unhandled error kind")
}

func (e *Error) Status() errmodel.Status {
	switch e.Kind {
	case KindInvalidArgument:
		return errmodel.StatusInvalidArgument
	case KindNotFound:
		return errmodel.StatusNotFound
	case KindInternal:
		return errmodel.StatusInternal
	}
	panic("chat: unhandled error kind")
}
