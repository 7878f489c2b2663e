package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/morezero/comms-transport/pkg/codec"
	"github.com/morezero/comms-transport/pkg/errmodel"
	"github.com/morezero/comms-transport/pkg/transport"
)

// RouteOpts configures Register.
type RouteOpts struct {
	// Codec is codec.NameJSON or codec.NameProto.
	Codec   string
	Queue   string
	Timeout time.Duration
	Accept  *semver.Constraints
}

// Register serves the chat subjects on srv.
func Register(ctx context.Context, srv *transport.Server, svc *ChatService, opts RouteOpts) error {
	createReq, err := codec.RequestByName[CreateChatGroup](opts.Codec, CreateProto)
	if err != nil {
		return err
	}
	getReq, err := codec.RequestByName[GetChatGroup](opts.Codec, GetProto)
	if err != nil {
		return err
	}
	resp, err := codec.ResponseByName[ChatGroup, Reason](opts.Codec, GroupProto)
	if err != nil {
		return err
	}

	fallback := func(err error) *errmodel.ErrorModel[Reason] {
		return svc.withService(Internal(err.Error())).ToErrorModel(nil, nil)
	}

	_, err = transport.Handle(ctx, srv, transport.Route[CreateChatGroup, ChatGroup, Reason]{
		Subject:  SubjectCreate,
		Queue:    opts.Queue,
		Request:  createReq,
		Response: resp,
		Handler:  svc.Create,
		Timeout:  opts.Timeout,
		Accept:   opts.Accept,
		Fallback: fallback,
	})
	if err != nil {
		return fmt.Errorf("%s - register %s: %w", logPrefix, SubjectCreate, err)
	}

	_, err = transport.Handle(ctx, srv, transport.Route[GetChatGroup, ChatGroup, Reason]{
		Subject:  SubjectGet,
		Queue:    opts.Queue,
		Request:  getReq,
		Response: resp,
		Handler:  svc.Get,
		Timeout:  opts.Timeout,
		Accept:   opts.Accept,
		Fallback: fallback,
	})
	if err != nil {
		return fmt.Errorf("%s - register %s: %w", logPrefix, SubjectGet, err)
	}
	return nil
}
