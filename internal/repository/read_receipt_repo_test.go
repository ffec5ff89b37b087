package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

func TestReadReceiptRepositoryMarkReadIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReadReceiptRepository(db)

	author := models.User{Username: "author"}
	reader := models.User{Username: "reader"}
	require.NoError(t, db.Create(&author).Error)
	require.NoError(t, db.Create(&reader).Error)

	message := models.ChatMessage{RoomID: 1, UserID: author.ID, Body: "hello"}
	require.NoError(t, db.Create(&message).Error)

	count, inserted, err := repo.MarkRead(context.Background(), message.ID, reader.ID)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, 1, count)

	count, inserted, err = repo.MarkRead(context.Background(), message.ID, reader.ID)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, 1, count)

	var facts int64
	require.NoError(t, db.Model(&models.MessageRead{}).Where("message_id = ?", message.ID).Count(&facts).Error)
	require.Equal(t, int64(1), facts)

	stored, err := repo.CountByMessage(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored)
}

func TestReadReceiptRepositoryCounterTracksDistinctReaders(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReadReceiptRepository(db)

	author := models.User{Username: "author"}
	require.NoError(t, db.Create(&author).Error)

	message := models.ChatMessage{RoomID: 1, UserID: author.ID, Body: "hello"}
	require.NoError(t, db.Create(&message).Error)

	for userID := uint(10); userID < 13; userID++ {
		count, inserted, err := repo.MarkRead(context.Background(), message.ID, userID)
		require.NoError(t, err)
		require.True(t, inserted)
		require.Equal(t, int(userID-9), count)
	}

	stored, err := repo.CountByMessage(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, 3, stored)
}

func TestReadReceiptRepositoryMissingMessage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReadReceiptRepository(db)

	_, _, err := repo.MarkRead(context.Background(), 999, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
