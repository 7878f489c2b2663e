package envelope

import (
	"encoding/json"
	"strconv"

	"github.com/morezero/comms-transport/pkg/headers"
)

// NatsEnvelope pairs a request payload with its headers.
type NatsEnvelope[T any] struct {
	Headers *headers.RequestHeaders
	Data    T
}

// NewEnvelope creates an envelope. Nil headers are replaced by empty ones.
func NewEnvelope[T any](h *headers.RequestHeaders, data T) *NatsEnvelope[T] {
	if h == nil {
		h = headers.New()
	}
	return &NatsEnvelope[T]{Headers: h, Data: data}
}

type jsonEnvelope[T any] struct {
	Headers []headers.MetadataEntry `json:"headers"`
	Data    T                       `json:"data"`
}

// MarshalJSON encodes the headers in their wire form.
func (e *NatsEnvelope[T]) MarshalJSON() ([]byte, error) {
	h := e.Headers
	if h == nil {
		h = headers.New()
	}
	return json.Marshal(jsonEnvelope[T]{Headers: h.ToWire(), Data: e.Data})
}

// UnmarshalJSON decodes the wire form, bridging the headers back.
func (e *NatsEnvelope[T]) UnmarshalJSON(data []byte) error {
	var raw jsonEnvelope[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h, err := headers.FromWire(raw.Headers)
	if err != nil {
		return err
	}
	e.Headers = h
	e.Data = raw.Data
	return nil
}

// NatsContext is what a handler learns about its caller.
type NatsContext struct {
	UserID   string
	Metadata *headers.RequestHeaders
}

// NewContext builds a NatsContext from inbound headers.
func NewContext(h *headers.RequestHeaders) *NatsContext {
	if h == nil {
		h = headers.New()
	}
	return &NatsContext{UserID: h.First(headers.KeyUserID), Metadata: h}
}

// Requestor returns the caller id as a requestor for error metadata, or nil when the user id is
// absent or not numeric.
func (c *NatsContext) Requestor() *int64 {
	if c.UserID == "" {
		return nil
	}
	id, err := strconv.ParseInt(c.UserID, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
