package audit

import (
	"time"

	"github.com/morezero/comms-transport/pkg/errmodel"
)

// Record is one persisted failed reply.
type Record struct {
	ID      int64               `json:"id"`
	Subject string              `json:"subject"`
	Service string              `json:"service"`
	Reply   errmodel.ErrorReply `json:"reply"`
	Created time.Time           `json:"created"`
}
