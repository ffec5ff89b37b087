package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/repository"
)

// ReactionService toggles per-user emoji annotations and aggregates them.
// A toggle is an involution: repeating it with identical arguments restores
// the previous state.
type ReactionService interface {
	Toggle(ctx context.Context, messageID, userID uint, emoji string) (added bool, err error)
	Counts(ctx context.Context, messageID uint) ([]dto.ReactionCount, error)
	UserEmojis(ctx context.Context, messageID, userID uint) ([]string, error)
}

type reactionService struct {
	reactions repository.ReactionRepository
	messages  repository.MessageRepository
	logger    zerolog.Logger
}

// NewReactionService constructs the reaction aggregator.
func NewReactionService(reactions repository.ReactionRepository, messages repository.MessageRepository, logger zerolog.Logger) ReactionService {
	return &reactionService{
		reactions: reactions,
		messages:  messages,
		logger:    logger.With().Str("component", "reaction_service").Logger(),
	}
}

func (s *reactionService) Toggle(ctx context.Context, messageID, userID uint, emoji string) (bool, error) {
	if userID == 0 {
		return false, ErrUnauthenticated
	}

	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return false, ErrInvalidArgument
	}

	if _, err := s.messages.Get(ctx, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}

	added, err := s.reactions.Toggle(ctx, messageID, userID, emoji)
	if err != nil {
		return false, err
	}

	s.logger.Debug().
		Uint("message_id", messageID).
		Uint("user_id", userID).
		Str("emoji", emoji).
		Bool("added", added).
		Msg("reaction toggled")
	return added, nil
}

func (s *reactionService) Counts(ctx context.Context, messageID uint) ([]dto.ReactionCount, error) {
	counts, err := s.reactions.CountsByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ReactionCount, 0, len(counts))
	for _, count := range counts {
		out = append(out, dto.ReactionCount{Emoji: count.Emoji, Count: count.Count})
	}
	return out, nil
}

func (s *reactionService) UserEmojis(ctx context.Context, messageID, userID uint) ([]string, error) {
	return s.reactions.EmojisByMessageAndUser(ctx, messageID, userID)
}
