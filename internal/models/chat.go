package models

import "time"

// Room lifecycle states mirror the group ones.
const (
	RoomStatusActive  = "active"
	RoomStatusDeleted = "deleted"
)

// Names of the two rooms provisioned with every group. They can never be
// deleted.
const (
	DefaultAdminRoomName   = "Admins"
	DefaultGeneralRoomName = "General"
)

// ChatRoom belongs to exactly one group; the group reference never changes
// after creation.
type ChatRoom struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	GroupID         uint      `gorm:"index;not null" json:"group_id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	ProfileImageURL string    `gorm:"size:512" json:"profile_image_url"`
	IsAdminRoom     bool      `gorm:"not null;default:false" json:"is_admin_room"`
	Status          string    `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Active reports whether the room has not been soft-deleted.
func (r ChatRoom) Active() bool {
	return r.Status == RoomStatusActive
}

// ChatMessage is immutable once created. ReadCount is denormalized and must
// stay equal to the number of MessageRead rows for the message; both are
// updated inside one transaction.
type ChatMessage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RoomID           uint      `gorm:"index;not null" json:"room_id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	User             User      `gorm:"foreignKey:UserID" json:"-"`
	Body             string    `gorm:"type:text;not null" json:"body"`
	ReplyToMessageID *uint     `gorm:"index" json:"reply_to_message_id,omitempty"`
	ReadCount        int       `gorm:"not null;default:0" json:"read_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// MessageRead records that a user has read a message. Append-only; existence
// of the row is the fact.
type MessageRead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"uniqueIndex:idx_message_reader;not null" json:"message_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_message_reader;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageReaction is a toggleable per-user, per-emoji annotation.
type MessageReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"uniqueIndex:idx_message_user_emoji;not null" json:"message_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_message_user_emoji;not null" json:"user_id"`
	Emoji     string    `gorm:"size:32;uniqueIndex:idx_message_user_emoji;not null" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
