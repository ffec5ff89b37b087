package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/models"
	"github.com/pgh-dev/moim-api/internal/repository"
)

// RoomService owns chat room lifecycle within a group. Room creation, update
// and deletion are admin-gated; listing filters the admin room out for
// non-admin callers instead of failing.
type RoomService interface {
	Create(ctx context.Context, groupID, actorID uint, payload dto.RoomCreateRequest) (dto.RoomResponse, error)
	Update(ctx context.Context, roomID, actorID uint, payload dto.RoomUpdateRequest) (dto.RoomResponse, error)
	Delete(ctx context.Context, roomID, actorID uint) error
	List(ctx context.Context, groupID, actorID uint) ([]dto.RoomResponse, error)
}

type roomService struct {
	rooms      repository.RoomRepository
	membership MembershipService
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewRoomService constructs the room registry.
func NewRoomService(rooms repository.RoomRepository, membership MembershipService, validate *validator.Validate, logger zerolog.Logger) RoomService {
	return &roomService{
		rooms:      rooms,
		membership: membership,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "room_service").Logger(),
	}
}

func (s *roomService) Create(ctx context.Context, groupID, actorID uint, payload dto.RoomCreateRequest) (dto.RoomResponse, error) {
	if actorID == 0 {
		return dto.RoomResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}

	role, err := s.membership.RoleOf(ctx, groupID, actorID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	if !role.IsAdmin() {
		return dto.RoomResponse{}, ErrForbidden
	}

	name := strings.TrimSpace(s.sanitizer.Sanitize(payload.Name))
	if name == "" {
		return dto.RoomResponse{}, ErrInvalidArgument
	}

	// Rooms created through this path are never admin rooms; the single
	// admin room is provisioned with the group.
	room := models.ChatRoom{
		GroupID:     groupID,
		Name:        name,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		IsAdminRoom: false,
		Status:      models.RoomStatusActive,
	}

	if err := s.rooms.Create(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	s.logger.Info().Uint("group_id", groupID).Uint("room_id", room.ID).Msg("chat room created")
	return dto.NewRoomResponse(room), nil
}

func (s *roomService) Update(ctx context.Context, roomID, actorID uint, payload dto.RoomUpdateRequest) (dto.RoomResponse, error) {
	if actorID == 0 {
		return dto.RoomResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}

	room, err := s.rooms.GetActive(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoomResponse{}, ErrNotFound
		}
		return dto.RoomResponse{}, err
	}

	role, err := s.membership.RoleOf(ctx, room.GroupID, actorID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	if !role.IsAdmin() {
		return dto.RoomResponse{}, ErrForbidden
	}

	if payload.Name != nil {
		name := strings.TrimSpace(s.sanitizer.Sanitize(*payload.Name))
		if name == "" {
			return dto.RoomResponse{}, ErrInvalidArgument
		}
		room.Name = name
	}
	if payload.Description != nil {
		room.Description = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
	}
	if payload.ProfileImageURL != nil {
		room.ProfileImageURL = *payload.ProfileImageURL
	}

	if err := s.rooms.Update(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	return dto.NewRoomResponse(room), nil
}

func (s *roomService) Delete(ctx context.Context, roomID, actorID uint) error {
	if actorID == 0 {
		return ErrUnauthenticated
	}

	room, err := s.rooms.GetActive(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	role, err := s.membership.RoleOf(ctx, room.GroupID, actorID)
	if err != nil {
		return err
	}
	if !role.IsAdmin() {
		return ErrForbidden
	}

	// The admin room and the room carrying the default general name are the
	// rooms provisioned with the group; they are permanently protected.
	if room.IsAdminRoom || room.Name == models.DefaultGeneralRoomName {
		return ErrInvalidState
	}

	if err := s.rooms.SoftDelete(ctx, roomID); err != nil {
		return err
	}

	s.logger.Info().Uint("room_id", roomID).Uint("group_id", room.GroupID).Msg("chat room deleted")
	return nil
}

func (s *roomService) List(ctx context.Context, groupID, actorID uint) ([]dto.RoomResponse, error) {
	role, err := s.membership.RoleOf(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}

	rooms, err := s.rooms.ListActiveByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	// Visibility filter, not an access error: non-admins never learn the
	// admin room exists.
	out := make([]dto.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		if room.IsAdminRoom && !role.IsAdmin() {
			continue
		}
		out = append(out, dto.NewRoomResponse(room))
	}

	return out, nil
}
