package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/models"
	"github.com/pgh-dev/moim-api/internal/repository"
)

// Role is a user's standing within a group, ordered by privilege. The owner
// outranks admins and is treated as admin-and-member everywhere.
type Role int

// Group roles from least to most privileged.
const (
	RoleNonMember Role = iota
	RoleMember
	RoleAdmin
	RoleOwner
)

// IsMember reports whether the role grants member-level access.
func (r Role) IsMember() bool { return r >= RoleMember }

// IsAdmin reports whether the role grants admin-level access.
func (r Role) IsAdmin() bool { return r >= RoleAdmin }

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	default:
		return "non-member"
	}
}

// MembershipService is the single authorization authority for group-scoped
// operations, plus the membership roster management around it. Nothing else
// in the codebase derives roles from raw membership rows.
type MembershipService interface {
	RoleOf(ctx context.Context, groupID, userID uint) (Role, error)
	Join(ctx context.Context, groupID, actorID uint) error
	Leave(ctx context.Context, groupID, actorID uint) error
	SetAdmin(ctx context.Context, groupID, actorID, targetID uint, isAdmin bool) error
	SetDisplayName(ctx context.Context, groupID, actorID, targetID uint, displayName string) error
	ListMembers(ctx context.Context, groupID uint) ([]dto.GroupMemberResponse, error)
}

type membershipService struct {
	groups  repository.GroupRepository
	members repository.MemberRepository
	logger  zerolog.Logger
}

// NewMembershipService constructs the membership authority.
func NewMembershipService(groups repository.GroupRepository, members repository.MemberRepository, logger zerolog.Logger) MembershipService {
	return &membershipService{
		groups:  groups,
		members: members,
		logger:  logger.With().Str("component", "membership_service").Logger(),
	}
}

func (s *membershipService) RoleOf(ctx context.Context, groupID, userID uint) (Role, error) {
	if userID == 0 {
		return RoleNonMember, nil
	}

	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoleNonMember, ErrNotFound
		}
		return RoleNonMember, err
	}

	// Ownership wins before any membership row is consulted: the owner is
	// always admin-and-member even without a row.
	if group.OwnerID == userID {
		return RoleOwner, nil
	}

	member, err := s.members.Get(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoleNonMember, nil
		}
		return RoleNonMember, err
	}

	if member.IsAdmin {
		return RoleAdmin, nil
	}
	return RoleMember, nil
}

func (s *membershipService) Join(ctx context.Context, groupID, actorID uint) error {
	if actorID == 0 {
		return ErrUnauthenticated
	}

	role, err := s.RoleOf(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if role.IsMember() {
		return ErrInvalidState
	}

	member := models.GroupMember{GroupID: groupID, UserID: actorID}
	if err := s.members.Create(ctx, &member); err != nil {
		return err
	}

	s.logger.Info().Uint("group_id", groupID).Uint("user_id", actorID).Msg("member joined group")
	return nil
}

func (s *membershipService) Leave(ctx context.Context, groupID, actorID uint) error {
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

	if group.OwnerID == actorID {
		return ErrInvalidState
	}

	return s.members.Delete(ctx, groupID, actorID)
}

func (s *membershipService) SetAdmin(ctx context.Context, groupID, actorID, targetID uint, isAdmin bool) error {
	if actorID == 0 {
		return ErrUnauthenticated
	}

	role, err := s.RoleOf(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if role != RoleOwner {
		return ErrForbidden
	}

	if targetID == actorID {
		return ErrInvalidArgument
	}

	targetRole, err := s.RoleOf(ctx, groupID, targetID)
	if err != nil {
		return err
	}
	if targetRole == RoleOwner {
		return ErrInvalidArgument
	}

	member, err := s.members.Get(ctx, groupID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	member.IsAdmin = isAdmin
	if err := s.members.Update(ctx, &member); err != nil {
		return err
	}

	s.logger.Info().
		Uint("group_id", groupID).
		Uint("user_id", targetID).
		Bool("is_admin", isAdmin).
		Msg("member admin flag changed")
	return nil
}

func (s *membershipService) SetDisplayName(ctx context.Context, groupID, actorID, targetID uint, displayName string) error {
	if actorID == 0 {
		return ErrUnauthenticated
	}
	if actorID != targetID {
		return ErrForbidden
	}

	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	member, err := s.members.Get(ctx, groupID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The owner commonly has no membership row; setting a nickname
			// for them is a silent no-op rather than an error.
			if group.OwnerID == targetID {
				return nil
			}
			return ErrNotFound
		}
		return err
	}

	member.DisplayName = strings.TrimSpace(displayName)
	return s.members.Update(ctx, &member)
}

func (s *membershipService) ListMembers(ctx context.Context, groupID uint) ([]dto.GroupMemberResponse, error) {
	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	members, err := s.members.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.GroupMemberResponse, 0, len(members)+1)
	ownerListed := false
	for _, member := range members {
		entry := dto.NewGroupMemberResponse(member)
		if member.UserID == group.OwnerID {
			entry.IsAdmin = true
			entry.IsOwner = true
			ownerListed = true
		}
		out = append(out, entry)
	}

	if !ownerListed {
		owner := dto.GroupMemberResponse{
			UserID:          group.OwnerID,
			Username:        group.Owner.Username,
			Nickname:        group.Owner.Nickname,
			ProfileImageURL: group.Owner.ProfileImageURL,
			IsAdmin:         true,
			IsOwner:         true,
		}
		out = append([]dto.GroupMemberResponse{owner}, out...)
	}

	return out, nil
}
