package headers

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// FromIncomingContext bridges the metadata of an inbound gRPC call. A context without metadata
// yields empty headers.
func FromIncomingContext(ctx context.Context) (*RequestHeaders, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return New(), nil
	}
	return FromMD(md)
}

// NewOutgoingContext attaches the headers to ctx as outgoing gRPC metadata.
func (h *RequestHeaders) NewOutgoingContext(ctx context.Context) context.Context {
	return metadata.NewOutgoingContext(ctx, h.MD())
}
