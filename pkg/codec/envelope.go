package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/morezero/comms-transport/pkg/envelope"
	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/headers"
)

// Envelope field numbers.
//
//	message Response { ErrorReply error = 1; bytes data = 2; }
//	message Request  { repeated MetadataMap headers = 1; bytes data = 2; }
const (
	fieldResponseError protowire.Number = 1
	fieldResponseData  protowire.Number = 2

	fieldRequestHeaders protowire.Number = 1
	fieldRequestData    protowire.Number = 2
)

// ResponseJSON encodes a NatsResponse as {"error": ErrorReply, "data": T}.
type ResponseJSON[T any, R errmodel.Reason] struct{}

func (ResponseJSON[T, R]) Name() string        { return NameJSON }
func (ResponseJSON[T, R]) ContentType() string { return "application/json" }

func (ResponseJSON[T, R]) Encode(r *envelope.NatsResponse[T, R]) ([]byte, error) {
	return JSON[*envelope.NatsResponse[T, R]]{}.Encode(r)
}

func (ResponseJSON[T, R]) Decode(data []byte) (*envelope.NatsResponse[T, R], error) {
	var r envelope.NatsResponse[T, R]
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, decodeErr(err)
	}
	return &r, nil
}

// ResponseProto encodes a NatsResponse in protobuf form. The payload travels as bytes produced
// by Payload.
type ResponseProto[T any, R errmodel.Reason] struct {
	Payload Codec[T]
}

func (ResponseProto[T, R]) Name() string        { return NameProto }
func (ResponseProto[T, R]) ContentType() string { return "application/x-protobuf" }

func (c ResponseProto[T, R]) Encode(r *envelope.NatsResponse[T, R]) ([]byte, error) {
	var b []byte
	if r.Error != nil {
		b = AppendMessageField(b, fieldResponseError, MarshalErrorReply(r.Error.Reply()))
	}
	if r.Data != nil {
		data, err := c.Payload.Encode(*r.Data)
		if err != nil {
			return nil, encodeErr(err)
		}
		b = AppendMessageField(b, fieldResponseData, data)
	}
	return b, nil
}

func (c ResponseProto[T, R]) Decode(data []byte) (*envelope.NatsResponse[T, R], error) {
	r := &envelope.NatsResponse[T, R]{}
	err := Walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldResponseError:
			raw, n, err := ConsumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			reply, err := UnmarshalErrorReply(raw)
			if err != nil {
				return 0, err
			}
			model, err := errmodel.ModelFromReply[R](reply)
			if err != nil {
				return 0, err
			}
			r.Error = model
			return n, nil
		case fieldResponseData:
			raw, n, err := ConsumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			v, err := c.Payload.Decode(raw)
			if err != nil {
				return 0, err
			}
			r.Data = &v
			return n, nil
		}
		return -1, nil
	})
	if err != nil {
		return nil, decodeErr(err)
	}
	return r, nil
}

// RequestJSON encodes a NatsEnvelope as {"headers": [...], "data": T}.
type RequestJSON[T any] struct{}

func (RequestJSON[T]) Name() string        { return NameJSON }
func (RequestJSON[T]) ContentType() string { return "application/json" }

func (RequestJSON[T]) Encode(e *envelope.NatsEnvelope[T]) ([]byte, error) {
	return JSON[*envelope.NatsEnvelope[T]]{}.Encode(e)
}

func (RequestJSON[T]) Decode(data []byte) (*envelope.NatsEnvelope[T], error) {
	var e envelope.NatsEnvelope[T]
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, decodeErr(err)
	}
	return &e, nil
}

// RequestProto encodes a NatsEnvelope in protobuf form.
type RequestProto[T any] struct {
	Payload Codec[T]
}

func (RequestProto[T]) Name() string        { return NameProto }
func (RequestProto[T]) ContentType() string { return "application/x-protobuf" }

func (c RequestProto[T]) Encode(e *envelope.NatsEnvelope[T]) ([]byte, error) {
	var b []byte
	if e.Headers != nil {
		for _, entry := range e.Headers.ToWire() {
			b = AppendMessageField(b, fieldRequestHeaders, MarshalMetadataEntry(entry))
		}
	}
	data, err := c.Payload.Encode(e.Data)
	if err != nil {
		return nil, encodeErr(err)
	}
	return AppendMessageField(b, fieldRequestData, data), nil
}

func (c RequestProto[T]) Decode(data []byte) (*envelope.NatsEnvelope[T], error) {
	var entries []headers.MetadataEntry
	var payload []byte
	err := Walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRequestHeaders:
			raw, n, err := ConsumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			entry, err := UnmarshalMetadataEntry(raw)
			if err != nil {
				return 0, err
			}
			entries = append(entries, entry)
			return n, nil
		case fieldRequestData:
			raw, n, err := ConsumeBytes(typ, b)
			payload = raw
			return n, err
		}
		return -1, nil
	})
	if err != nil {
		return nil, decodeErr(err)
	}
	h, err := headers.FromWire(entries)
	if err != nil {
		return nil, decodeErr(err)
	}
	v, err := c.Payload.Decode(payload)
	if err != nil {
		return nil, decodeErr(err)
	}
	return envelope.NewEnvelope(h, v), nil
}

// ResponseByName returns the response codec for name. payload is only used by the protobuf form.
func ResponseByName[T any, R errmodel.Reason](name string, payload Codec[T]) (Codec[*envelope.NatsResponse[T, R]], error) {
	switch name {
	case NameJSON:
		return ResponseJSON[T, R]{}, nil
	case NameProto:
		return ResponseProto[T, R]{Payload: payload}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// RequestByName returns the request codec for name. payload is only used by the protobuf form.
func RequestByName[T any](name string, payload Codec[T]) (Codec[*envelope.NatsEnvelope[T]], error) {
	switch name {
	case NameJSON:
		return RequestJSON[T]{}, nil
	case NameProto:
		return RequestProto[T]{Payload: payload}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}
