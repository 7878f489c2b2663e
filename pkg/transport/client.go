package transport

import (
	"context"
	"time"

	"google.golang.org/protobuf/proto"

	"github.com/morezero/comms-transport/pkg/codec"
	"github.com/morezero/comms-transport/pkg/commsutil"
	"github.com/morezero/comms-transport/pkg/envelope"
	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/headers"
)

// PublishJSON publishes v as JSON.
func PublishJSON[T any](s *Server, subject string, v T, h *headers.RequestHeaders) error {
	return publish(s, subject, codec.JSON[T]{}, v, h)
}

// PublishProto publishes a protobuf message.
func PublishProto[T proto.Message](s *Server, subject string, v T, h *headers.RequestHeaders) error {
	return publish(s, subject, codec.Proto[T]{}, v, h)
}

// RequestJSON sends req as JSON and decodes the JSON reply into Resp.
func RequestJSON[Req, Resp any](ctx context.Context, s *Server, subject string, req Req, h *headers.RequestHeaders) (Resp, error) {
	return request(ctx, s, subject, codec.JSON[Req]{}, codec.JSON[Resp]{}, req, h)
}

// RequestProto sends a protobuf request and decodes the protobuf reply into Resp.
func RequestProto[Req, Resp proto.Message](ctx context.Context, s *Server, subject string, req Req, h *headers.RequestHeaders) (Resp, error) {
	return request(ctx, s, subject, codec.Proto[Req]{}, codec.Proto[Resp]{}, req, h)
}

// Call sends a request envelope to a subject served by Handle and returns the decoded response.
// The envelope is stamped with the server's envelope version when it carries none.
func Call[Req, Resp any, R errmodel.Reason](
	ctx context.Context,
	s *Server,
	subject string,
	reqCodec codec.Codec[*envelope.NatsEnvelope[Req]],
	respCodec codec.Codec[*envelope.NatsResponse[Resp, R]],
	env *envelope.NatsEnvelope[Req],
) (*envelope.NatsResponse[Resp, R], error) {
	if env.Headers == nil {
		env.Headers = headers.New()
	}
	if len(env.Headers.Get(headers.KeyEnvelopeVersion)) == 0 {
		env.Headers.SetEnvelopeVersion(s.version)
	}
	if deadline, ok := ctx.Deadline(); ok && len(env.Headers.Get(headers.KeyTimeoutMs)) == 0 {
		env.Headers.SetTimeout(time.Until(deadline))
	}
	return request(ctx, s, subject, reqCodec, respCodec, env, env.Headers)
}

func publish[T any](s *Server, subject string, c codec.Codec[T], v T, h *headers.RequestHeaders) error {
	msg, err := commsutil.EncodeMsg(subject, c, v, nativeHeader(h))
	if err != nil {
		return err
	}
	return s.publishMsg(msg)
}

func request[Req, Resp any](
	ctx context.Context,
	s *Server,
	subject string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	req Req,
	h *headers.RequestHeaders,
) (Resp, error) {
	var zero Resp
	msg, err := commsutil.EncodeMsg(subject, reqCodec, req, nativeHeader(h))
	if err != nil {
		return zero, err
	}
	reply, err := s.requestMsg(ctx, msg)
	if err != nil {
		return zero, err
	}
	return commsutil.DecodeMsg(reply, respCodec)
}
