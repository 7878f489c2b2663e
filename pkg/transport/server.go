// Package transport carries COMMS envelopes over NATS: publish and request passthrough, typed
// JSON and protobuf helpers, and subscription handlers that speak NatsEnvelope / NatsResponse.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Masterminds/semver/v3"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/comms-transport/pkg/commsutil"
	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/headers"
)

const logPrefix = "transport:server"

var (
	// ErrNotConnected is returned when the server has no open connection.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrPublish wraps publish failures reported by the connection.
	ErrPublish = errors.New("transport: publish failed")
	// ErrRequest wraps request failures reported by the connection, timeouts included.
	ErrRequest = errors.New("transport: request failed")
)

// ErrorSink is told about every failed reply a handler sends. Sinks run after the reply is sent.
type ErrorSink func(ctx context.Context, subject string, reply *errmodel.ErrorReply)

// Options configures a Server. Nil or zero values use defaults.
type Options struct {
	// Service names the producing service in error metadata and events.
	Service string
	// Name is the COMMS connection name shown in server monitoring. Defaults to Service.
	Name string
	// EnvelopeVersion is stamped on outgoing envelopes. Defaults to headers.DefaultEnvelopeVersion.
	EnvelopeVersion *semver.Version
}

// Server wraps a COMMS connection.
type Server struct {
	nc      *comms.Conn
	service string
	version *semver.Version

	mu    sync.RWMutex
	sinks []ErrorSink
	subs  []*comms.Subscription
}

// Connect dials COMMS and returns a Server over the new connection.
func Connect(url string, opts *Options, extra ...comms.Option) (*Server, error) {
	name := ""
	if opts != nil {
		name = opts.Name
		if name == "" {
			name = opts.Service
		}
	}
	nc, err := commsutil.Connect(url, name, extra...)
	if err != nil {
		return nil, err
	}
	return NewServer(nc, opts), nil
}

// NewServer wraps an existing connection. Pass nil for opts to use defaults.
func NewServer(nc *comms.Conn, opts *Options) *Server {
	s := &Server{nc: nc, version: semver.MustParse(headers.DefaultEnvelopeVersion)}
	if opts != nil {
		s.service = opts.Service
		if opts.EnvelopeVersion != nil {
			s.version = opts.EnvelopeVersion
		}
	}
	return s
}

// Conn returns the underlying connection.
func (s *Server) Conn() *comms.Conn { return s.nc }

// Service returns the configured service name.
func (s *Server) Service() string { return s.service }

// EnvelopeVersion returns the version stamped on outgoing envelopes.
func (s *Server) EnvelopeVersion() *semver.Version { return s.version }

// IsConnected reports whether the connection is currently usable.
func (s *Server) IsConnected() bool {
	return s.nc != nil && s.nc.IsConnected()
}

// OnError registers a sink for failed replies.
func (s *Server) OnError(sink ErrorSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Publish sends an already serialized payload. h may be nil.
func (s *Server) Publish(subject string, data []byte, h *headers.RequestHeaders) error {
	return s.publishMsg(&comms.Msg{Subject: subject, Data: data, Header: nativeHeader(h)})
}

// Request sends an already serialized payload and waits for the reply until ctx is done.
func (s *Server) Request(ctx context.Context, subject string, data []byte, h *headers.RequestHeaders) (*comms.Msg, error) {
	return s.requestMsg(ctx, &comms.Msg{Subject: subject, Data: data, Header: nativeHeader(h)})
}

// Drain unsubscribes every handler after in-flight messages are processed.
func (s *Server) Drain() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the underlying connection.
func (s *Server) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

func (s *Server) publishMsg(msg *comms.Msg) error {
	if s.nc == nil || s.nc.IsClosed() {
		return ErrNotConnected
	}
	if err := s.nc.PublishMsg(msg); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", logPrefix, msg.Subject, err))
		return fmt.Errorf("%w: %s: %w", ErrPublish, msg.Subject, err)
	}
	return nil
}

func (s *Server) requestMsg(ctx context.Context, msg *comms.Msg) (*comms.Msg, error) {
	if s.nc == nil || s.nc.IsClosed() {
		return nil, ErrNotConnected
	}
	reply, err := s.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - request to %s failed: %v", logPrefix, msg.Subject, err))
		return nil, fmt.Errorf("%w: %s: %w", ErrRequest, msg.Subject, err)
	}
	return reply, nil
}

func (s *Server) track(sub *comms.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}

func (s *Server) notify(ctx context.Context, subject string, reply *errmodel.ErrorReply) {
	s.mu.RLock()
	sinks := append([]ErrorSink(nil), s.sinks...)
	s.mu.RUnlock()
	for _, sink := range sinks {
		sink(ctx, subject, reply)
	}
}

func nativeHeader(h *headers.RequestHeaders) comms.Header {
	if h == nil {
		return comms.Header{}
	}
	return h.ToNATS()
}
