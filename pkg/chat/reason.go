// Package chat is a sample COMMS service: chat groups created and fetched over request/reply, with
// its own error reasons.
package chat

import (
	"fmt"
)

// Reason is the chat service's error reason set.
type Reason int

const (
	ReasonTitleEmpty Reason = iota + 1
	ReasonAboutTooLong
	ReasonGroupNotFound
	ReasonStorageFailure
)

var reasonNames = map[Reason]string{
	ReasonTitleEmpty:     "CHAT_TITLE_EMPTY",
	ReasonAboutTooLong:   "CHAT_ABOUT_TOO_LONG",
	ReasonGroupNotFound:  "CHAT_GROUP_NOT_FOUND",
	ReasonStorageFailure: "CHAT_STORAGE_FAILURE",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	if _, ok := reasonNames[r]; !ok {
		return nil, fmt.Errorf("unknown chat reason %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	for k, v := range reasonNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown chat reason %q", text)
}
