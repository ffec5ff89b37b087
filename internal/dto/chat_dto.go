package dto

import (
	"time"

	"github.com/pgh-dev/moim-api/internal/models"
)

// RoomCreateRequest is the payload to create a chat room inside a group.
type RoomCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// RoomUpdateRequest patches a room; nil fields stay unchanged.
type RoomUpdateRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=2,max=128"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	ProfileImageURL *string `json:"profile_image_url" validate:"omitempty,url,max=512"`
}

// RoomResponse is a chat room as listed to a group member.
type RoomResponse struct {
	ID              uint      `json:"id"`
	GroupID         uint      `json:"group_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	IsAdminRoom     bool      `json:"is_admin_room"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewRoomResponse converts a room model into a DTO.
func NewRoomResponse(room models.ChatRoom) RoomResponse {
	return RoomResponse{
		ID:              room.ID,
		GroupID:         room.GroupID,
		Name:            room.Name,
		Description:     room.Description,
		ProfileImageURL: room.ProfileImageURL,
		IsAdminRoom:     room.IsAdminRoom,
		CreatedAt:       room.CreatedAt,
	}
}

// NewRoomResponseSlice converts a slice of rooms into DTOs.
func NewRoomResponseSlice(rooms []models.ChatRoom) []RoomResponse {
	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, NewRoomResponse(room))
	}
	return out
}

// ReactionCount is a per-emoji aggregate for one message.
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// ReplySnapshot is the quoted view of the message a chat message replies to.
type ReplySnapshot struct {
	ID              uint   `json:"id"`
	Body            string `json:"body"`
	Username        string `json:"username"`
	Nickname        string `json:"nickname"`
	DisplayName     string `json:"display_name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// ChatMessageResponse is the enriched message payload delivered both over the
// history endpoint and the websocket broadcast. Display name precedence and
// the admin badge reflect the author's standing at read time, not send time.
type ChatMessageResponse struct {
	ID               uint                       `json:"id"`
	RoomID           uint                       `json:"room_id"`
	Body             string                     `json:"body"`
	Username         string                     `json:"username"`
	Nickname         string                     `json:"nickname"`
	DisplayName      string                     `json:"display_name,omitempty"`
	ProfileImageURL  string                     `json:"profile_image_url,omitempty"`
	IsAdmin          bool                       `json:"is_admin"`
	ReadCount        int                        `json:"read_count"`
	ReplyToMessageID *uint                      `json:"reply_to_message_id,omitempty"`
	ReplyTo          *ReplySnapshot             `json:"reply_to,omitempty"`
	Reactions        []ReactionCount `json:"reactions"`
	MyReactions      []string        `json:"my_reactions"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MessagePage wraps one reverse-chronological page of messages.
type MessagePage struct {
	Messages []ChatMessageResponse `json:"messages"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}
