package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

// GroupFilter narrows and paginates group listings.
type GroupFilter struct {
	IDs      []uint
	Page     int
	PageSize int
}

// GroupRepository persists groups. Creation provisions the owner membership
// and the two default chat rooms inside one transaction so that a partially
// created group is never observable.
type GroupRepository interface {
	CreateWithDefaults(ctx context.Context, group *models.Group) error
	GetActive(ctx context.Context, id uint) (models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, filter GroupFilter) ([]models.Group, int64, error)
	CountOwnedBy(ctx context.Context, userID uint) (int64, error)
	ListIDsOwnedBy(ctx context.Context, userID uint) ([]uint, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository constructs a group repository backed by GORM.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) CreateWithDefaults(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		member := models.GroupMember{
			GroupID: group.ID,
			UserID:  group.OwnerID,
			IsAdmin: true,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		rooms := []models.ChatRoom{
			{
				GroupID:     group.ID,
				Name:        models.DefaultAdminRoomName,
				Description: "Private room for group admins.",
				IsAdminRoom: true,
				Status:      models.RoomStatusActive,
			},
			{
				GroupID:     group.ID,
				Name:        models.DefaultGeneralRoomName,
				Description: "Open room for every member.",
				IsAdminRoom: false,
				Status:      models.RoomStatusActive,
			},
		}
		return tx.Create(&rooms).Error
	})
}

func (r *groupRepository) GetActive(ctx context.Context, id uint) (models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ? AND status = ?", id, models.GroupStatusActive).
		First(&group).Error
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (r *groupRepository) Update(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Save(group).Error
}

func (r *groupRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("id = ?", id).
		Update("status", models.GroupStatusDeleted).Error
}

func (r *groupRepository) List(ctx context.Context, filter GroupFilter) ([]models.Group, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("status = ?", models.GroupStatusActive)
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	err := query.Preload("Owner").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&groups).Error
	if err != nil {
		return nil, 0, err
	}

	return groups, total, nil
}

func (r *groupRepository) CountOwnedBy(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("owner_id = ? AND status = ?", userID, models.GroupStatusActive).
		Count(&count).Error
	return count, err
}

func (r *groupRepository) ListIDsOwnedBy(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("owner_id = ? AND status = ?", userID, models.GroupStatusActive).
		Pluck("id", &ids).Error
	return ids, err
}
