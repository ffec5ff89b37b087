package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/models"
)

type stubRoomRepo struct {
	rooms  map[uint]models.ChatRoom
	nextID uint
}

func newStubRoomRepo() *stubRoomRepo {
	return &stubRoomRepo{rooms: map[uint]models.ChatRoom{}}
}

func (s *stubRoomRepo) add(room models.ChatRoom) models.ChatRoom {
	if room.ID == 0 {
		s.nextID++
		room.ID = s.nextID
	} else if room.ID > s.nextID {
		s.nextID = room.ID
	}
	if room.Status == "" {
		room.Status = models.RoomStatusActive
	}
	s.rooms[room.ID] = room
	return room
}

func (s *stubRoomRepo) Create(ctx context.Context, room *models.ChatRoom) error {
	*room = s.add(*room)
	return nil
}

func (s *stubRoomRepo) GetActive(ctx context.Context, id uint) (models.ChatRoom, error) {
	room, ok := s.rooms[id]
	if !ok || room.Status != models.RoomStatusActive {
		return models.ChatRoom{}, gorm.ErrRecordNotFound
	}
	return room, nil
}

func (s *stubRoomRepo) Update(ctx context.Context, room *models.ChatRoom) error {
	s.rooms[room.ID] = *room
	return nil
}

func (s *stubRoomRepo) SoftDelete(ctx context.Context, id uint) error {
	room := s.rooms[id]
	room.Status = models.RoomStatusDeleted
	s.rooms[id] = room
	return nil
}

func (s *stubRoomRepo) ListActiveByGroup(ctx context.Context, groupID uint) ([]models.ChatRoom, error) {
	var out []models.ChatRoom
	for id := uint(1); id <= s.nextID; id++ {
		room, ok := s.rooms[id]
		if ok && room.GroupID == groupID && room.Status == models.RoomStatusActive {
			out = append(out, room)
		}
	}
	return out, nil
}

func newRoomFixture(t *testing.T) (*stubRoomRepo, RoomService, models.Group) {
	t.Helper()

	groups := newStubGroupRepo()
	members := newStubMemberRepo()
	group := groups.add(models.Group{Name: "Climbers", OwnerID: 1})
	members.add(models.GroupMember{GroupID: group.ID, UserID: 2, IsAdmin: true})
	members.add(models.GroupMember{GroupID: group.ID, UserID: 3})

	rooms := newStubRoomRepo()
	rooms.add(models.ChatRoom{GroupID: group.ID, Name: models.DefaultAdminRoomName, IsAdminRoom: true})
	rooms.add(models.ChatRoom{GroupID: group.ID, Name: models.DefaultGeneralRoomName})

	membership := NewMembershipService(groups, members, zerolog.Nop())
	svc := NewRoomService(rooms, membership, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	return rooms, svc, group
}

func TestRoomCreateIsAdminGated(t *testing.T) {
	_, svc, group := newRoomFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, group.ID, 3, dto.RoomCreateRequest{Name: "Off Topic"})
	require.ErrorIs(t, err, ErrForbidden)

	room, err := svc.Create(ctx, group.ID, 2, dto.RoomCreateRequest{Name: "Off Topic"})
	require.NoError(t, err)
	require.False(t, room.IsAdminRoom, "user-created rooms are never admin rooms")

	_, err = svc.Create(ctx, group.ID, 0, dto.RoomCreateRequest{Name: "Ghost Room"})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRoomDeleteProtectsDefaultRooms(t *testing.T) {
	rooms, svc, group := newRoomFixture(t)
	ctx := context.Background()

	extra := rooms.add(models.ChatRoom{GroupID: group.ID, Name: "Off Topic"})

	require.ErrorIs(t, svc.Delete(ctx, 1, 1), ErrInvalidState, "the admin room is permanent")
	require.ErrorIs(t, svc.Delete(ctx, 2, 1), ErrInvalidState, "the default general room is permanent")
	require.ErrorIs(t, svc.Delete(ctx, extra.ID, 3), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, extra.ID, 1))

	_, err := svc.Update(ctx, extra.ID, 1, dto.RoomUpdateRequest{})
	require.ErrorIs(t, err, ErrNotFound, "deleted rooms disappear from reads")
}

func TestRoomListHidesAdminRoomFromNonAdmins(t *testing.T) {
	_, svc, group := newRoomFixture(t)
	ctx := context.Background()

	visible, err := svc.List(ctx, group.ID, 3)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, models.DefaultGeneralRoomName, visible[0].Name)

	all, err := svc.List(ctx, group.ID, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)

	anonymous, err := svc.List(ctx, group.ID, 0)
	require.NoError(t, err)
	require.Len(t, anonymous, 1, "anonymous callers see only non-admin rooms")
}

func TestRoomUpdateSanitizesName(t *testing.T) {
	rooms, svc, group := newRoomFixture(t)
	ctx := context.Background()

	extra := rooms.add(models.ChatRoom{GroupID: group.ID, Name: "Off Topic"})

	name := "<em>Quiet</em> Corner"
	updated, err := svc.Update(ctx, extra.ID, 2, dto.RoomUpdateRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Quiet Corner", updated.Name)
}
