package models

import "time"

// User carries the display data joined into group and chat payloads.
// Registration and credential handling live in the auth service; this API
// only ever reads these rows.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Nickname        string    `gorm:"size:64" json:"nickname"`
	ProfileImageURL string    `gorm:"size:512" json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
