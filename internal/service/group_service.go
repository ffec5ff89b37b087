package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/models"
	"github.com/pgh-dev/moim-api/internal/repository"
)

// A user may belong to at most this many active groups, owned ones included.
const maxGroupsPerUser = 10

// GroupService exposes group lifecycle use-cases.
type GroupService interface {
	Create(ctx context.Context, actorID uint, payload dto.GroupCreateRequest) (dto.GroupResponse, error)
	List(ctx context.Context, actorID uint, page, pageSize int, mine bool) (dto.GroupListResponse, error)
	Detail(ctx context.Context, actorID, groupID uint) (dto.GroupResponse, error)
	Update(ctx context.Context, actorID, groupID uint, payload dto.GroupUpdateRequest) (dto.GroupResponse, error)
	Delete(ctx context.Context, actorID, groupID uint, payload dto.GroupDeleteRequest) error
}

type groupService struct {
	groups     repository.GroupRepository
	members    repository.MemberRepository
	membership MembershipService
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewGroupService constructs a group service.
func NewGroupService(groups repository.GroupRepository, members repository.MemberRepository, membership MembershipService, validate *validator.Validate, logger zerolog.Logger) GroupService {
	return &groupService{
		groups:     groups,
		members:    members,
		membership: membership,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "group_service").Logger(),
		tracer:     otel.Tracer("github.com/pgh-dev/moim-api/internal/service/group"),
	}
}

func (s *groupService) Create(ctx context.Context, actorID uint, payload dto.GroupCreateRequest) (dto.GroupResponse, error) {
	if actorID == 0 {
		return dto.GroupResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.GroupResponse{}, err
	}

	name := strings.TrimSpace(s.sanitizer.Sanitize(payload.Name))
	if name == "" {
		return dto.GroupResponse{}, ErrInvalidArgument
	}

	owned, err := s.groups.CountOwnedBy(ctx, actorID)
	if err != nil {
		return dto.GroupResponse{}, err
	}
	joined, err := s.members.CountByUser(ctx, actorID)
	if err != nil {
		return dto.GroupResponse{}, err
	}
	if owned+joined >= maxGroupsPerUser {
		return dto.GroupResponse{}, ErrInvalidState
	}

	spanCtx, span := s.tracer.Start(ctx, "group.create", trace.WithAttributes(
		attribute.Int64("group.owner_id", int64(actorID)),
	))
	defer span.End()

	group := models.Group{
		Name:            name,
		Description:     strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		OwnerID:         actorID,
		ProfileImageURL: payload.ProfileImageURL,
		Status:          models.GroupStatusActive,
	}
	if len(payload.Settings) > 0 {
		group.Settings = datatypes.JSONMap{}
		for key, value := range payload.Settings {
			group.Settings[key] = value
		}
	}

	if err := s.groups.CreateWithDefaults(spanCtx, &group); err != nil {
		span.RecordError(err)
		return dto.GroupResponse{}, err
	}

	s.logger.Info().Uint("group_id", group.ID).Uint("owner_id", actorID).Msg("group created with default rooms")

	return s.annotate(spanCtx, group, actorID)
}

func (s *groupService) List(ctx context.Context, actorID uint, page, pageSize int, mine bool) (dto.GroupListResponse, error) {
	filter := repository.GroupFilter{Page: page, PageSize: pageSize}

	if mine {
		if actorID == 0 {
			return dto.GroupListResponse{}, ErrUnauthenticated
		}
		owned, err := s.groups.ListIDsOwnedBy(ctx, actorID)
		if err != nil {
			return dto.GroupListResponse{}, err
		}
		joined, err := s.members.ListGroupIDsByUser(ctx, actorID)
		if err != nil {
			return dto.GroupListResponse{}, err
		}

		seen := make(map[uint]struct{}, len(owned)+len(joined))
		ids := make([]uint, 0, len(owned)+len(joined))
		for _, id := range append(owned, joined...) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return dto.GroupListResponse{Groups: []dto.GroupResponse{}, Page: page, PageSize: pageSize}, nil
		}
		filter.IDs = ids
	}

	groups, total, err := s.groups.List(ctx, filter)
	if err != nil {
		return dto.GroupListResponse{}, err
	}

	out := make([]dto.GroupResponse, 0, len(groups))
	for _, group := range groups {
		annotated, err := s.annotate(ctx, group, actorID)
		if err != nil {
			return dto.GroupListResponse{}, err
		}
		out = append(out, annotated)
	}

	return dto.GroupListResponse{Groups: out, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *groupService) Detail(ctx context.Context, actorID, groupID uint) (dto.GroupResponse, error) {
	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GroupResponse{}, ErrNotFound
		}
		return dto.GroupResponse{}, err
	}

	return s.annotate(ctx, group, actorID)
}

func (s *groupService) Update(ctx context.Context, actorID, groupID uint, payload dto.GroupUpdateRequest) (dto.GroupResponse, error) {
	if actorID == 0 {
		return dto.GroupResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.GroupResponse{}, err
	}

	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GroupResponse{}, ErrNotFound
		}
		return dto.GroupResponse{}, err
	}

	role, err := s.membership.RoleOf(ctx, groupID, actorID)
	if err != nil {
		return dto.GroupResponse{}, err
	}
	if !role.IsAdmin() {
		return dto.GroupResponse{}, ErrForbidden
	}

	if payload.Name != nil {
		name := strings.TrimSpace(s.sanitizer.Sanitize(*payload.Name))
		if name == "" {
			return dto.GroupResponse{}, ErrInvalidArgument
		}
		group.Name = name
	}
	if payload.Description != nil {
		group.Description = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
	}
	if payload.ProfileImageURL != nil {
		group.ProfileImageURL = *payload.ProfileImageURL
	}

	if err := s.groups.Update(ctx, &group); err != nil {
		return dto.GroupResponse{}, err
	}

	return s.annotate(ctx, group, actorID)
}

func (s *groupService) Delete(ctx context.Context, actorID, groupID uint, payload dto.GroupDeleteRequest) error {
	if actorID == 0 {
		return ErrUnauthenticated
	}

	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if group.OwnerID != actorID {
		return ErrForbidden
	}

	if confirm := strings.TrimSpace(payload.ConfirmName); confirm != "" && confirm != group.Name {
		return ErrInvalidArgument
	}

	if err := s.groups.SoftDelete(ctx, groupID); err != nil {
		return err
	}

	s.logger.Info().Uint("group_id", groupID).Uint("owner_id", actorID).Msg("group deleted")
	return nil
}

func (s *groupService) annotate(ctx context.Context, group models.Group, actorID uint) (dto.GroupResponse, error) {
	response := dto.NewGroupResponse(group)

	count, err := s.members.CountByGroup(ctx, group.ID)
	if err != nil {
		return dto.GroupResponse{}, err
	}
	response.MemberCount = count

	if actorID != 0 {
		role, err := s.membership.RoleOf(ctx, group.ID, actorID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return dto.GroupResponse{}, err
		}
		response.IsMember = role.IsMember()
		response.IsAdmin = role.IsAdmin()
	}

	return response, nil
}
