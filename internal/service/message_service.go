package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/models"
	"github.com/pgh-dev/moim-api/internal/repository"
)

const maxMessageBodyLength = 4000

// MessageService persists chat messages and serves the enriched
// reverse-chronological history. Enrichment happens at read time: display
// name precedence and the admin badge always reflect the author's current
// standing, never the standing at send time.
type MessageService interface {
	Post(ctx context.Context, roomID, actorID uint, body string, replyToMessageID *uint) (dto.ChatMessageResponse, error)
	List(ctx context.Context, roomID, actorID uint, page, pageSize int) (dto.MessagePage, error)
}

type messageService struct {
	messages   repository.MessageRepository
	rooms      repository.RoomRepository
	groups     repository.GroupRepository
	members    repository.MemberRepository
	reactions  repository.ReactionRepository
	membership MembershipService
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewMessageService constructs the message store.
func NewMessageService(
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	groups repository.GroupRepository,
	members repository.MemberRepository,
	reactions repository.ReactionRepository,
	membership MembershipService,
	validate *validator.Validate,
	logger zerolog.Logger,
) MessageService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &messageService{
		messages:   messages,
		rooms:      rooms,
		groups:     groups,
		members:    members,
		reactions:  reactions,
		membership: membership,
		validator:  validate,
		sanitizer:  sanitizer,
		logger:     logger.With().Str("component", "message_service").Logger(),
		tracer:     otel.Tracer("github.com/pgh-dev/moim-api/internal/service/message"),
	}
}

func (s *messageService) Post(ctx context.Context, roomID, actorID uint, body string, replyToMessageID *uint) (dto.ChatMessageResponse, error) {
	if actorID == 0 {
		return dto.ChatMessageResponse{}, ErrUnauthenticated
	}

	room, err := s.rooms.GetActive(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChatMessageResponse{}, ErrNotFound
		}
		return dto.ChatMessageResponse{}, err
	}

	role, err := s.membership.RoleOf(ctx, room.GroupID, actorID)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}
	if !role.IsMember() {
		return dto.ChatMessageResponse{}, ErrForbidden
	}
	if room.IsAdminRoom && !role.IsAdmin() {
		return dto.ChatMessageResponse{}, ErrForbidden
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(body))
	if clean == "" || len(clean) > maxMessageBodyLength {
		return dto.ChatMessageResponse{}, ErrInvalidArgument
	}

	if replyToMessageID != nil {
		target, err := s.messages.Get(ctx, *replyToMessageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ChatMessageResponse{}, ErrNotFound
			}
			return dto.ChatMessageResponse{}, err
		}
		if target.RoomID != roomID {
			return dto.ChatMessageResponse{}, ErrInvalidArgument
		}
	}

	spanCtx, span := s.tracer.Start(ctx, "message.post", trace.WithAttributes(
		attribute.Int64("chat.room_id", int64(roomID)),
		attribute.Int64("chat.sender_id", int64(actorID)),
	))
	defer span.End()

	message := models.ChatMessage{
		RoomID:           roomID,
		UserID:           actorID,
		Body:             clean,
		ReplyToMessageID: replyToMessageID,
		ReadCount:        0,
	}
	if err := s.messages.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.ChatMessageResponse{}, err
	}

	// Re-read to pick up the author association for enrichment.
	stored, err := s.messages.Get(spanCtx, message.ID)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	enriched, err := s.enrich(spanCtx, room.GroupID, actorID, []models.ChatMessage{stored})
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	s.logger.Info().Uint("room_id", roomID).Uint("message_id", message.ID).Msg("chat message stored")
	return enriched[0], nil
}

func (s *messageService) List(ctx context.Context, roomID, actorID uint, page, pageSize int) (dto.MessagePage, error) {
	room, err := s.rooms.GetActive(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessagePage{}, ErrNotFound
		}
		return dto.MessagePage{}, err
	}

	// Reading the admin room is gated like posting to it; every other room's
	// history is readable without a membership check.
	if room.IsAdminRoom {
		if actorID == 0 {
			return dto.MessagePage{}, ErrUnauthenticated
		}
		role, err := s.membership.RoleOf(ctx, room.GroupID, actorID)
		if err != nil {
			return dto.MessagePage{}, err
		}
		if !role.IsAdmin() {
			return dto.MessagePage{}, ErrForbidden
		}
	}

	messages, err := s.messages.ListRecentByRoom(ctx, roomID, page, pageSize)
	if err != nil {
		return dto.MessagePage{}, err
	}

	enriched, err := s.enrich(ctx, room.GroupID, actorID, messages)
	if err != nil {
		return dto.MessagePage{}, err
	}

	return dto.MessagePage{Messages: enriched, Page: page, PageSize: pageSize}, nil
}

// enrich joins the author's current display data, the fresh admin badge, the
// reply snapshot and the reaction aggregates onto each message. actorID may
// be zero; the caller's own reaction set is then left empty.
func (s *messageService) enrich(ctx context.Context, groupID, actorID uint, messages []models.ChatMessage) ([]dto.ChatMessageResponse, error) {
	if len(messages) == 0 {
		return []dto.ChatMessageResponse{}, nil
	}

	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	members, err := s.members.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	admins := map[uint]struct{}{group.OwnerID: {}}
	displayNames := make(map[uint]string, len(members))
	for _, member := range members {
		if member.IsAdmin {
			admins[member.UserID] = struct{}{}
		}
		if member.DisplayName != "" {
			displayNames[member.UserID] = member.DisplayName
		}
	}

	out := make([]dto.ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		response := dto.ChatMessageResponse{
			ID:               message.ID,
			RoomID:           message.RoomID,
			Body:             message.Body,
			Username:         message.User.Username,
			Nickname:         message.User.Nickname,
			DisplayName:      displayNames[message.UserID],
			ProfileImageURL:  message.User.ProfileImageURL,
			ReadCount:        message.ReadCount,
			ReplyToMessageID: message.ReplyToMessageID,
			CreatedAt:        message.CreatedAt,
			Reactions:        []dto.ReactionCount{},
			MyReactions:      []string{},
		}

		_, response.IsAdmin = admins[message.UserID]

		if message.ReplyToMessageID != nil {
			target, err := s.messages.Get(ctx, *message.ReplyToMessageID)
			if err == nil {
				response.ReplyTo = &dto.ReplySnapshot{
					ID:              target.ID,
					Body:            target.Body,
					Username:        target.User.Username,
					Nickname:        target.User.Nickname,
					DisplayName:     displayNames[target.UserID],
					ProfileImageURL: target.User.ProfileImageURL,
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}

		counts, err := s.reactions.CountsByMessage(ctx, message.ID)
		if err != nil {
			return nil, err
		}
		for _, count := range counts {
			response.Reactions = append(response.Reactions, dto.ReactionCount{Emoji: count.Emoji, Count: count.Count})
		}

		if actorID != 0 {
			emojis, err := s.reactions.EmojisByMessageAndUser(ctx, message.ID, actorID)
			if err != nil {
				return nil, err
			}
			if emojis != nil {
				response.MyReactions = emojis
			}
		}

		out = append(out, response)
	}

	return out, nil
}
