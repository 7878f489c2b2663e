package errmodel

// StandardError is a ready-made domain error over the standard ErrorReason set.
type StandardError struct {
	Reason  ErrorReason
	Msg     string
	Domain  string
	Service string
}

// NewStandardError creates a StandardError owned by the given domain and service.
func NewStandardError(reason ErrorReason, msg, domain, service string) *StandardError {
	return &StandardError{Reason: reason, Msg: msg, Domain: domain, Service: service}
}

func (e *StandardError) Error() string { return e.Msg }

// ToErrorModel implements ToErrorModel.
func (e *StandardError) ToErrorModel(requestor *int64, request *string) *ErrorModel[ErrorReason] {
	return NewErrorModel[ErrorReason](e.Status(), e.ErrorCode(), e.Msg).
		WithDetails(e.Reason, e.Domain).
		AttachContext(e.Service, requestor, request).
		Model()
}

// ErrorCode implements ToErrorModel. It panics for a reason outside the standard set.
func (e *StandardError) ErrorCode() int32 {
	switch e.Reason {
	case ReasonInvalidRequest, ReasonInvalidArgument:
		return 400
	case ReasonUnauthenticated:
		return 401
	case ReasonPermissionDenied:
		return 403
	case ReasonNotFound:
		return 404
	case ReasonAlreadyExists:
		return 409
	case ReasonUnavailable:
		return 503
	case ReasonTimeout:
		return 504
	case ReasonUnspecified, ReasonDatabaseError, ReasonInternalError:
		return 500
	}
	panic("errmodel: unhandled error reason")
}

// Status implements ToErrorModel.
func (e *StandardError) Status() Status {
	switch e.Reason {
	case ReasonInvalidRequest, ReasonInvalidArgument:
		return StatusInvalidArgument
	case ReasonUnauthenticated:
		return StatusUnauthenticated
	case ReasonPermissionDenied:
		return StatusPermissionDenied
	case ReasonNotFound:
		return StatusNotFound
	case ReasonAlreadyExists:
		return StatusAlreadyExists
	case ReasonUnavailable:
		return StatusUnavailable
	case ReasonTimeout:
		return StatusDeadlineExceeded
	case ReasonUnspecified, ReasonDatabaseError, ReasonInternalError:
		return StatusInternal
	}
	panic("errmodel: unhandled error reason")
}
