package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

// ReadReceiptRepository records read facts and keeps the denormalized
// read counter on the message in lockstep with them.
type ReadReceiptRepository interface {
	// MarkRead inserts the (message, user) read fact and bumps the counter
	// atomically. Returns the resulting count and whether a new fact was
	// recorded; a repeated call is a no-op.
	MarkRead(ctx context.Context, messageID, userID uint) (count int, inserted bool, err error)
	CountByMessage(ctx context.Context, messageID uint) (int, error)
}

type readReceiptRepository struct {
	db *gorm.DB
}

// NewReadReceiptRepository constructs a read receipt repository backed by GORM.
func NewReadReceiptRepository(db *gorm.DB) ReadReceiptRepository {
	return &readReceiptRepository{db: db}
}

func (r *readReceiptRepository) MarkRead(ctx context.Context, messageID, userID uint) (int, bool, error) {
	var (
		count    int
		inserted bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var message models.ChatMessage
		if err := tx.First(&message, messageID).Error; err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.MessageRead{}).
			Where("message_id = ? AND user_id = ?", messageID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			count = message.ReadCount
			return nil
		}

		read := models.MessageRead{MessageID: messageID, UserID: userID}
		if err := tx.Create(&read).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.ChatMessage{}).
			Where("id = ?", messageID).
			UpdateColumn("read_count", gorm.Expr("read_count + 1")).Error; err != nil {
			return err
		}

		count = message.ReadCount + 1
		inserted = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	return count, inserted, nil
}

func (r *readReceiptRepository) CountByMessage(ctx context.Context, messageID uint) (int, error) {
	// Fast path: the counter column, never a recount of the fact table.
	var message models.ChatMessage
	if err := r.db.WithContext(ctx).Select("read_count").First(&message, messageID).Error; err != nil {
		return 0, err
	}
	return message.ReadCount, nil
}
