package models

import (
	"time"

	"gorm.io/datatypes"
)

// Lifecycle states shared by groups and chat rooms. Retrieval queries filter
// on the status discriminant instead of a raw deleted flag.
const (
	GroupStatusActive  = "active"
	GroupStatusDeleted = "deleted"
)

// Group is a community unit owning chat rooms and a membership roster.
type Group struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Name            string            `gorm:"size:128;not null" json:"name"`
	Description     string            `gorm:"type:text" json:"description"`
	OwnerID         uint              `gorm:"index;not null" json:"owner_id"`
	Owner           User              `gorm:"foreignKey:OwnerID" json:"-"`
	ProfileImageURL string            `gorm:"size:512" json:"profile_image_url"`
	Settings        datatypes.JSONMap `gorm:"type:json" json:"settings"`
	Status          string            `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Active reports whether the group has not been soft-deleted.
func (g Group) Active() bool {
	return g.Status == GroupStatusActive
}

// GroupMember is the (group, user) relationship. The owner is implicitly an
// admin member and usually has no row here; never read these rows directly
// for authorization — go through MembershipService.RoleOf.
type GroupMember struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GroupID     uint      `gorm:"uniqueIndex:idx_group_user;not null" json:"group_id"`
	UserID      uint      `gorm:"uniqueIndex:idx_group_user;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"is_admin"`
	DisplayName string    `gorm:"size:64" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
