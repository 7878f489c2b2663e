// Package events publishes an event for every failed COMMS reply.
package events

import "github.com/morezero/comms-transport/pkg/errmodel"

// ErrorEvent is emitted after a handler sent a failed reply.
type ErrorEvent struct {
	// Subject is the request subject that failed.
	Subject   string               `json:"subject"`
	Service   string               `json:"service"`
	Reply     *errmodel.ErrorReply `json:"reply"`
	Timestamp string               `json:"timestamp"`
}
