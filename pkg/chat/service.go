package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nats-io/nuid"

	"github.com/morezero/comms-transport/pkg/envelope"
)

const logPrefix = "chat:service"

// Subjects served by the chat service.
const (
	SubjectCreate = "chat.chatgroup.command.create"
	SubjectGet    = "chat.chatgroup.query.get"
)

// MaxAboutLen bounds ChatGroup.About, in characters.
const MaxAboutLen = 280

// CreateChatGroup is the create request.
type CreateChatGroup struct {
	Title string `json:"title"`
	About string `json:"about,omitempty"`
}

// GetChatGroup is the lookup request.
type GetChatGroup struct {
	ID string `json:"id"`
}

// ChatGroup is a stored chat group.
type ChatGroup struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	About   string    `json:"about,omitempty"`
	OwnerID string    `json:"ownerId,omitempty"`
	Created time.Time `json:"created"`
}

// ServiceOpts configures a chat Service. Nil or zero values use defaults.
type ServiceOpts struct {
	// Service is reported in error metadata. Defaults to Service.
	Service string
	// Domain is the error detail domain. Defaults to Domain.
	Domain string
	// MaxGroups caps the in-memory store. Zero means no cap.
	MaxGroups int
}

// ChatService keeps chat groups in memory.
type ChatService struct {
	service   string
	domain    string
	maxGroups int
	now       func() time.Time

	mu     sync.RWMutex
	groups map[string]ChatGroup
}

// NewService creates a ChatService. Pass nil for opts to use defaults.
func NewService(opts *ServiceOpts) *ChatService {
	s := &ChatService{service: Service, domain: Domain, now: time.Now, groups: make(map[string]ChatGroup)}
	if opts != nil {
		if opts.Service != "" {
			s.service = opts.Service
		}
		if opts.Domain != "" {
			s.domain = opts.Domain
		}
		s.maxGroups = opts.MaxGroups
	}
	return s
}

// Create validates req and stores a new group owned by the caller.
func (s *ChatService) Create(ctx context.Context, nctx *envelope.NatsContext, req CreateChatGroup) (ChatGroup, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return ChatGroup{}, s.withService(InvalidArgument(ReasonTitleEmpty, "No chat title provided."))
	}
	if utf8.RuneCountInString(req.About) > MaxAboutLen {
		return ChatGroup{}, s.withService(InvalidArgument(ReasonAboutTooLong,
			fmt.Sprintf("Chat description exceeds %d characters.", MaxAboutLen)))
	}
	if err := ctx.Err(); err != nil {
		return ChatGroup{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxGroups > 0 && len(s.groups) >= s.maxGroups {
		return ChatGroup{}, s.withService(Internal("Chat group storage is full."))
	}

	g := ChatGroup{
		ID:      nuid.Next(),
		Title:   title,
		About:   req.About,
		OwnerID: nctx.UserID,
		Created: s.now().UTC(),
	}
	s.groups[g.ID] = g

	slog.Debug(fmt.Sprintf("%s - Created chat group %s for %q", logPrefix, g.ID, g.OwnerID))
	return g, nil
}

// Get returns a stored group.
func (s *ChatService) Get(_ context.Context, _ *envelope.NatsContext, req GetChatGroup) (ChatGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[req.ID]
	if !ok {
		return ChatGroup{}, s.withService(NotFound(fmt.Sprintf("Chat group %q not found.", req.ID)))
	}
	return g, nil
}

// Len returns the number of stored groups.
func (s *ChatService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

func (s *ChatService) withService(e *Error) *Error {
	e.Service = s.service
	e.Domain = s.domain
	return e
}
