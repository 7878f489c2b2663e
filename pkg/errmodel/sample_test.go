package errmodel

import "fmt"

// sampleReason is a domain reason set used across the package tests.
type sampleReason int

const (
	reasonChatTitleEmpty sampleReason = iota
	reasonChatAboutTooLong
)

func (r sampleReason) String() string {
	switch r {
	case reasonChatTitleEmpty:
		return "CHAT_TITLE_EMPTY"
	case reasonChatAboutTooLong:
		return "CHAT_ABOUT_TOO_LONG"
	}
	return "UNKNOWN"
}

func (r *sampleReason) UnmarshalText(text []byte) error {
	switch string(text) {
	case "CHAT_TITLE_EMPTY":
		*r = reasonChatTitleEmpty
	case "CHAT_ABOUT_TOO_LONG":
		*r = reasonChatAboutTooLong
	default:
		return fmt.Errorf("unknown sample reason %q", string(text))
	}
	return nil
}

type sampleKind int

const (
	sampleInvalidArgument sampleKind = iota
	sampleInternal
)

// sampleError is a domain error carrying its own reason.
type sampleError struct {
	kind   sampleKind
	reason sampleReason
	msg    string
}

func (e *sampleError) Error() string {
	if e.kind == sampleInternal {
		return "Internal error: " + e.msg
	}
	return e.msg
}

func (e *sampleError) ToErrorModel(requestor *int64, request *string) *ErrorModel[sampleReason] {
	return NewErrorModel[sampleReason](e.Status(), e.ErrorCode(), e.Error()).
		WithDetails(e.reason, "runtiva.com").
		AttachContext("chat-persist.runtiva.com", requestor, request).
		Model()
}

func (e *sampleError) ErrorCode() int32 {
	switch e.kind {
	case sampleInvalidArgument:
		return 400
	case sampleInternal:
		return 500
	}
	return 500
}

func (e *sampleError) Status() Status {
	switch e.kind {
	case sampleInvalidArgument:
		return StatusInvalidArgument
	case sampleInternal:
		return StatusInternal
	}
	return StatusInternal
}

var _ ToErrorModel[sampleReason] = (*sampleError)(nil)
