package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/repository"
)

// ReadTracker records at-most-one read fact per (message, user) and keeps
// the denormalized read counter in sync with the fact table.
type ReadTracker interface {
	// MarkRead is idempotent: the first call for a pair inserts the fact and
	// bumps the counter in one transaction, later calls return the unchanged
	// count.
	MarkRead(ctx context.Context, messageID, userID uint) (int, error)
	ReadCount(ctx context.Context, messageID uint) (int, error)
}

type readTracker struct {
	receipts repository.ReadReceiptRepository
	logger   zerolog.Logger
}

// NewReadTracker constructs a read tracker.
func NewReadTracker(receipts repository.ReadReceiptRepository, logger zerolog.Logger) ReadTracker {
	return &readTracker{
		receipts: receipts,
		logger:   logger.With().Str("component", "read_tracker").Logger(),
	}
}

func (t *readTracker) MarkRead(ctx context.Context, messageID, userID uint) (int, error) {
	if userID == 0 {
		return 0, ErrUnauthenticated
	}

	count, inserted, err := t.receipts.MarkRead(ctx, messageID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	if inserted {
		t.logger.Debug().Uint("message_id", messageID).Uint("user_id", userID).Int("read_count", count).Msg("message marked read")
	}
	return count, nil
}

func (t *readTracker) ReadCount(ctx context.Context, messageID uint) (int, error) {
	count, err := t.receipts.CountByMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}
