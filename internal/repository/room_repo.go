package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

// RoomRepository persists chat rooms. Soft-deleted rooms are invisible to
// every query here except Update, which operates on a row already loaded.
type RoomRepository interface {
	Create(ctx context.Context, room *models.ChatRoom) error
	GetActive(ctx context.Context, id uint) (models.ChatRoom, error)
	Update(ctx context.Context, room *models.ChatRoom) error
	SoftDelete(ctx context.Context, id uint) error
	ListActiveByGroup(ctx context.Context, groupID uint) ([]models.ChatRoom, error)
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository constructs a chat room repository backed by GORM.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) GetActive(ctx context.Context, id uint) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.RoomStatusActive).
		First(&room).Error
	if err != nil {
		return models.ChatRoom{}, err
	}
	return room, nil
}

func (r *roomRepository) Update(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *roomRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatRoom{}).
		Where("id = ?", id).
		Update("status", models.RoomStatusDeleted).Error
}

func (r *roomRepository) ListActiveByGroup(ctx context.Context, groupID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, models.RoomStatusActive).
		Order("created_at ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
