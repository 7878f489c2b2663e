package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/comms-transport/pkg/codec"
	"github.com/morezero/comms-transport/pkg/commsutil"
	"github.com/morezero/comms-transport/pkg/envelope"
	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/headers"
)

const handlerLogPrefix = "transport:handler"

// DefaultTimeout bounds a handler invocation when Route.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Codes used for failures the handler adapter produces itself.
const (
	CodeMalformedRequest    int32 = 400
	CodeIncompatibleVersion int32 = 412
	CodeInternal            int32 = 500
	CodeTimeout             int32 = 504
)

// HandlerFunc serves one decoded request. A returned error that implements
// errmodel.ToErrorModel[R] or wraps an *errmodel.ErrorModel[R] is sent as is; other errors go
// through Route.Fallback.
type HandlerFunc[Req, Resp any] func(ctx context.Context, nctx *envelope.NatsContext, req Req) (Resp, error)

// Route describes a subscription served by Handle.
type Route[Req, Resp any, R errmodel.Reason] struct {
	Subject string
	// Queue, when set, joins a queue group so replicas share the subject.
	Queue    string
	Request  codec.Codec[*envelope.NatsEnvelope[Req]]
	Response codec.Codec[*envelope.NatsResponse[Resp, R]]
	Handler  HandlerFunc[Req, Resp]
	// Timeout bounds each invocation. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Accept restricts the envelope versions served. Nil accepts every version.
	Accept *semver.Constraints
	// Fallback converts errors that carry no error model. Defaults to an INTERNAL model.
	Fallback func(err error) *errmodel.ErrorModel[R]
}

// Handle subscribes rt on s. Every message is decoded, checked, dispatched to the handler and
// answered with a NatsResponse on its reply subject. Failed replies are passed to the error sinks.
func Handle[Req, Resp any, R errmodel.Reason](ctx context.Context, s *Server, rt Route[Req, Resp, R]) (*comms.Subscription, error) {
	if s.nc == nil || s.nc.IsClosed() {
		return nil, ErrNotConnected
	}
	if rt.Request == nil || rt.Response == nil || rt.Handler == nil {
		return nil, fmt.Errorf("%s - route %s needs request and response codecs and a handler", handlerLogPrefix, rt.Subject)
	}
	if rt.Timeout <= 0 {
		rt.Timeout = DefaultTimeout
	}

	cb := func(msg *comms.Msg) {
		serve(ctx, s, &rt, msg)
	}

	var sub *comms.Subscription
	var err error
	if rt.Queue != "" {
		sub, err = s.nc.QueueSubscribe(rt.Subject, rt.Queue, cb)
	} else {
		sub, err = s.nc.Subscribe(rt.Subject, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", handlerLogPrefix, rt.Subject, err)
	}
	s.track(sub)

	slog.Info(fmt.Sprintf("%s - Serving %s (codec=%s, timeout=%s)", handlerLogPrefix, rt.Subject, rt.Response.Name(), rt.Timeout))
	return sub, nil
}

func serve[Req, Resp any, R errmodel.Reason](ctx context.Context, s *Server, rt *Route[Req, Resp, R], msg *comms.Msg) {
	replyHeaders := headers.New()
	replyHeaders.SetEnvelopeVersion(s.version)

	var resp *envelope.NatsResponse[Resp, R]
	env, h, err := decodeRequest(msg, rt.Request)
	switch {
	case err != nil:
		slog.Warn(fmt.Sprintf("%s - malformed request on %s: %v", handlerLogPrefix, msg.Subject, err))
		resp = envelope.FromModel[Resp](errmodel.NewErrorModel[R](errmodel.StatusInvalidArgument, CodeMalformedRequest, "malformed request: "+err.Error()))
	default:
		if id := h.First(headers.KeyRequestID); id != "" {
			_ = replyHeaders.Set(headers.KeyRequestID, id)
		}
		if err := h.CheckEnvelopeVersion(rt.Accept); err != nil {
			slog.Warn(fmt.Sprintf("%s - rejected request on %s: %v", handlerLogPrefix, msg.Subject, err))
			resp = envelope.FromModel[Resp](errmodel.NewErrorModel[R](errmodel.StatusFailedPrecondition, CodeIncompatibleVersion, err.Error()))
			break
		}
		reqCtx, cancel := context.WithTimeout(ctx, budget(h, rt.Timeout))
		resp = dispatch(reqCtx, rt, envelope.NewContext(h), msg.Subject, env.Data)
		cancel()
	}

	if msg.Reply != "" {
		out, err := commsutil.EncodeMsg(msg.Reply, rt.Response, resp, replyHeaders.ToNATS())
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode reply for %s: %v", handlerLogPrefix, msg.Subject, err))
		} else if err := s.publishMsg(out); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to reply on %s: %v", handlerLogPrefix, msg.Subject, err))
		}
	} else {
		slog.Debug(fmt.Sprintf("%s - no reply subject on %s, response dropped", handlerLogPrefix, msg.Subject))
	}

	if resp.Error != nil {
		s.notify(context.WithoutCancel(ctx), msg.Subject, resp.Error.Reply())
	}
}

// decodeRequest decodes the envelope of msg and returns its headers merged with the native
// message headers. Envelope headers win on conflicts. Content type and codec headers describe
// the payload and are not passed on.
func decodeRequest[Req any](msg *comms.Msg, c codec.Codec[*envelope.NatsEnvelope[Req]]) (*envelope.NatsEnvelope[Req], *headers.RequestHeaders, error) {
	env, err := commsutil.DecodeMsg(msg, c)
	if err != nil {
		return nil, nil, err
	}
	native := comms.Header{}
	for k, v := range msg.Header {
		if strings.EqualFold(k, commsutil.HeaderContentType) || strings.EqualFold(k, headers.KeyCodec) {
			continue
		}
		native[k] = v
	}
	fromMsg, err := headers.FromNATS(native)
	if err != nil {
		return nil, nil, fmt.Errorf("message headers: %w", err)
	}
	h := env.Headers
	if h == nil {
		h = headers.New()
	}
	h.Merge(fromMsg)
	return env, h, nil
}

// budget is the route timeout, shortened to the caller's remaining budget when that is smaller.
func budget(h *headers.RequestHeaders, limit time.Duration) time.Duration {
	if d, ok := h.Timeout(); ok && d < limit {
		return d
	}
	return limit
}

type outcome[Resp any] struct {
	resp Resp
	err  error
}

func dispatch[Req, Resp any, R errmodel.Reason](ctx context.Context, rt *Route[Req, Resp, R], nctx *envelope.NatsContext, subject string, req Req) *envelope.NatsResponse[Resp, R] {
	done := make(chan outcome[Resp], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome[Resp]{err: fmt.Errorf("handler panic: %v", p)}
			}
		}()
		resp, err := rt.Handler(ctx, nctx, req)
		done <- outcome[Resp]{resp: resp, err: err}
	}()

	var out outcome[Resp]
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err == nil {
		return envelope.NewResponse[Resp, R](out.resp)
	}
	return envelope.FromModel[Resp](errorModel(rt, nctx, subject, out.err))
}

func errorModel[Req, Resp any, R errmodel.Reason](rt *Route[Req, Resp, R], nctx *envelope.NatsContext, subject string, err error) *errmodel.ErrorModel[R] {
	var domainErr errmodel.ToErrorModel[R]
	if errors.As(err, &domainErr) {
		m, perr := convert(domainErr, nctx, subject)
		if perr == nil {
			return m
		}
		slog.Error(fmt.Sprintf("%s - handler for %s failed: %v", handlerLogPrefix, subject, perr))
		return errmodel.NewErrorModel[R](errmodel.StatusInternal, CodeInternal, err.Error())
	}
	var model *errmodel.ErrorModel[R]
	if errors.As(err, &model) {
		return model
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errmodel.NewErrorModel[R](errmodel.StatusDeadlineExceeded, CodeTimeout, "handler timed out")
	}
	if rt.Fallback != nil {
		if m := rt.Fallback(err); m != nil {
			return m
		}
	}
	slog.Error(fmt.Sprintf("%s - handler for %s failed: %v", handlerLogPrefix, subject, err))
	return errmodel.NewErrorModel[R](errmodel.StatusInternal, CodeInternal, err.Error())
}

// convert runs the domain error's mapping. A mapping that panics is reported as an error.
func convert[R errmodel.Reason](e errmodel.ToErrorModel[R], nctx *envelope.NatsContext, subject string) (m *errmodel.ErrorModel[R], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("error mapping panic for %T: %v", e, p)
		}
	}()
	return e.ToErrorModel(nctx.Requestor(), &subject), nil
}
