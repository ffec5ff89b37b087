package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

// MemberRepository persists group memberships. The unique (group_id, user_id)
// index guarantees at most one membership per user per group.
type MemberRepository interface {
	Get(ctx context.Context, groupID, userID uint) (models.GroupMember, error)
	Exists(ctx context.Context, groupID, userID uint) (bool, error)
	Create(ctx context.Context, member *models.GroupMember) error
	Delete(ctx context.Context, groupID, userID uint) error
	Update(ctx context.Context, member *models.GroupMember) error
	ListByGroup(ctx context.Context, groupID uint) ([]models.GroupMember, error)
	ListGroupIDsByUser(ctx context.Context, userID uint) ([]uint, error)
	CountByGroup(ctx context.Context, groupID uint) (int64, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository constructs a membership repository backed by GORM.
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Get(ctx context.Context, groupID, userID uint) (models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		return models.GroupMember{}, err
	}
	return member, nil
}

func (r *memberRepository) Exists(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *memberRepository) Create(ctx context.Context, member *models.GroupMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepository) Delete(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{}).Error
}

func (r *memberRepository) Update(ctx context.Context, member *models.GroupMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

func (r *memberRepository) ListByGroup(ctx context.Context, groupID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) ListGroupIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	return ids, err
}

func (r *memberRepository) CountByGroup(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

func (r *memberRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
