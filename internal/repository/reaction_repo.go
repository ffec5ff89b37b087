package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

// ReactionCount is a per-emoji aggregate for one message.
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// ReactionRepository toggles and aggregates message reactions.
type ReactionRepository interface {
	// Toggle flips the (message, user, emoji) fact: present rows are removed,
	// absent rows are inserted. Returns true when the reaction was added.
	Toggle(ctx context.Context, messageID, userID uint, emoji string) (added bool, err error)
	CountsByMessage(ctx context.Context, messageID uint) ([]ReactionCount, error)
	EmojisByMessageAndUser(ctx context.Context, messageID, userID uint) ([]string, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository constructs a reaction repository backed by GORM.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Toggle(ctx context.Context, messageID, userID uint, emoji string) (bool, error) {
	var added bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.MessageReaction{}).
			Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
			Count(&existing).Error; err != nil {
			return err
		}

		if existing > 0 {
			return tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
				Delete(&models.MessageReaction{}).Error
		}

		added = true
		reaction := models.MessageReaction{MessageID: messageID, UserID: userID, Emoji: emoji}
		return tx.Create(&reaction).Error
	})
	if err != nil {
		return false, err
	}

	return added, nil
}

func (r *reactionRepository) CountsByMessage(ctx context.Context, messageID uint) ([]ReactionCount, error) {
	var counts []ReactionCount
	err := r.db.WithContext(ctx).
		Model(&models.MessageReaction{}).
		Select("emoji, COUNT(*) AS count").
		Where("message_id = ?", messageID).
		Group("emoji").
		Order("emoji ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *reactionRepository) EmojisByMessageAndUser(ctx context.Context, messageID, userID uint) ([]string, error) {
	var emojis []string
	err := r.db.WithContext(ctx).
		Model(&models.MessageReaction{}).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Order("emoji ASC").
		Pluck("emoji", &emojis).Error
	if err != nil {
		return nil, err
	}
	return emojis, nil
}
