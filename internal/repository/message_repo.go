package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

// MessageRepository persists chat messages. Messages are immutable; there is
// intentionally no update or delete.
type MessageRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	Get(ctx context.Context, id uint) (models.ChatMessage, error)
	ListRecentByRoom(ctx context.Context, roomID uint, page, pageSize int) ([]models.ChatMessage, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) Get(ctx context.Context, id uint) (models.ChatMessage, error) {
	var message models.ChatMessage
	if err := r.db.WithContext(ctx).Preload("User").First(&message, id).Error; err != nil {
		return models.ChatMessage{}, err
	}
	return message, nil
}

func (r *messageRepository) ListRecentByRoom(ctx context.Context, roomID uint, page, pageSize int) ([]models.ChatMessage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}
