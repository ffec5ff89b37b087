package dto

import (
	"time"

	"github.com/pgh-dev/moim-api/internal/models"
)

// GroupCreateRequest is the payload to create a group.
type GroupCreateRequest struct {
	Name            string            `json:"name" validate:"required,min=2,max=128"`
	Description     string            `json:"description" validate:"omitempty,max=2000"`
	ProfileImageURL string            `json:"profile_image_url" validate:"omitempty,url,max=512"`
	Settings        map[string]string `json:"settings" validate:"omitempty,max=16"`
}

// GroupUpdateRequest patches a group; nil fields stay unchanged.
type GroupUpdateRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=2,max=128"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	ProfileImageURL *string `json:"profile_image_url" validate:"omitempty,url,max=512"`
}

// GroupDeleteRequest optionally carries the confirmation name that must match
// the group's name before deletion proceeds.
type GroupDeleteRequest struct {
	ConfirmName string `json:"confirm_name" validate:"omitempty,max=128"`
}

// GroupResponse is a group as returned by list and detail endpoints, annotated
// with the calling user's relationship to it.
type GroupResponse struct {
	ID              uint              `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	OwnerUsername   string            `json:"owner_username"`
	OwnerNickname   string            `json:"owner_nickname"`
	ProfileImageURL string            `json:"profile_image_url,omitempty"`
	Settings        map[string]string `json:"settings,omitempty"`
	MemberCount     int64             `json:"member_count"`
	IsMember        bool              `json:"is_member"`
	IsAdmin         bool              `json:"is_admin"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewGroupResponse converts a group model into a DTO.
func NewGroupResponse(group models.Group) GroupResponse {
	response := GroupResponse{
		ID:              group.ID,
		Name:            group.Name,
		Description:     group.Description,
		OwnerUsername:   group.Owner.Username,
		OwnerNickname:   group.Owner.Nickname,
		ProfileImageURL: group.ProfileImageURL,
		CreatedAt:       group.CreatedAt,
		UpdatedAt:       group.UpdatedAt,
	}
	if group.Settings != nil {
		response.Settings = make(map[string]string)
		for key, value := range group.Settings {
			if str, ok := value.(string); ok {
				response.Settings[key] = str
			}
		}
	}
	return response
}

// GroupListResponse wraps one page of groups.
type GroupListResponse struct {
	Groups   []GroupResponse `json:"groups"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// GroupMemberResponse is one roster entry, display data included. The owner
// always appears flagged admin and owner even without a membership row.
type GroupMemberResponse struct {
	UserID          uint   `json:"user_id"`
	Username        string `json:"username"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	IsAdmin         bool   `json:"is_admin"`
	IsOwner         bool   `json:"is_owner"`
}

// NewGroupMemberResponse converts a membership row into a roster entry.
func NewGroupMemberResponse(member models.GroupMember) GroupMemberResponse {
	return GroupMemberResponse{
		UserID:          member.UserID,
		Username:        member.User.Username,
		Nickname:        member.User.Nickname,
		ProfileImageURL: member.User.ProfileImageURL,
		DisplayName:     member.DisplayName,
		IsAdmin:         member.IsAdmin,
	}
}

// MemberAdminRequest toggles a member's admin flag.
type MemberAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// MemberDisplayNameRequest sets the group-scoped chat nickname. An empty
// string clears it.
type MemberDisplayNameRequest struct {
	DisplayName string `json:"display_name" validate:"omitempty,max=64"`
}
