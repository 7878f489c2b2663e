package commsutil

import (
	"fmt"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/comms-transport/pkg/codec"
	"github.com/morezero/comms-transport/pkg/headers"
)

// HeaderContentType carries the codec content type of a message payload.
const HeaderContentType = "Content-Type"

// EncodeMsg serializes v with c into a message for subject and stamps the content type and
// codec name headers. hdr may be nil.
func EncodeMsg[T any](subject string, c codec.Codec[T], v T, hdr comms.Header) (*comms.Msg, error) {
	data, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	if hdr == nil {
		hdr = comms.Header{}
	}
	hdr.Set(HeaderContentType, c.ContentType())
	hdr.Set(headers.KeyCodec, c.Name())
	return &comms.Msg{Subject: subject, Data: data, Header: hdr}, nil
}

// DecodeMsg deserializes the payload of msg with c. A message that declares a different content
// type is rejected; one without a content type is decoded as is.
func DecodeMsg[T any](msg *comms.Msg, c codec.Codec[T]) (T, error) {
	if ct := msg.Header.Get(HeaderContentType); ct != "" && ct != c.ContentType() {
		var zero T
		return zero, fmt.Errorf("%w: content type %q, want %q", codec.ErrDecodeFailure, ct, c.ContentType())
	}
	return c.Decode(msg.Data)
}
