package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pgh-dev/moim-api/internal/models"
)

func TestGroupRepositoryCreateWithDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)

	owner := models.User{Username: "mina", Nickname: "Mina"}
	require.NoError(t, db.Create(&owner).Error)

	group := models.Group{Name: "Hiking Club", OwnerID: owner.ID, Status: models.GroupStatusActive}
	require.NoError(t, repo.CreateWithDefaults(context.Background(), &group))
	require.NotZero(t, group.ID)

	var member models.GroupMember
	require.NoError(t, db.Where("group_id = ? AND user_id = ?", group.ID, owner.ID).First(&member).Error)
	require.True(t, member.IsAdmin)

	var rooms []models.ChatRoom
	require.NoError(t, db.Where("group_id = ?", group.ID).Order("is_admin_room DESC").Find(&rooms).Error)
	require.Len(t, rooms, 2)
	require.Equal(t, models.DefaultAdminRoomName, rooms[0].Name)
	require.True(t, rooms[0].IsAdminRoom)
	require.Equal(t, models.DefaultGeneralRoomName, rooms[1].Name)
	require.False(t, rooms[1].IsAdminRoom)
}

func TestGroupRepositorySoftDeleteHidesGroup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)

	owner := models.User{Username: "jun"}
	require.NoError(t, db.Create(&owner).Error)

	group := models.Group{Name: "Book Club", OwnerID: owner.ID, Status: models.GroupStatusActive}
	require.NoError(t, repo.CreateWithDefaults(context.Background(), &group))

	require.NoError(t, repo.SoftDelete(context.Background(), group.ID))

	_, err := repo.GetActive(context.Background(), group.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	groups, total, err := repo.List(context.Background(), GroupFilter{PageSize: 10})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, groups)
}

func TestGroupRepositoryListFiltersByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)

	owner := models.User{Username: "sol"}
	require.NoError(t, db.Create(&owner).Error)

	first := models.Group{Name: "First", OwnerID: owner.ID, Status: models.GroupStatusActive}
	second := models.Group{Name: "Second", OwnerID: owner.ID, Status: models.GroupStatusActive}
	require.NoError(t, repo.CreateWithDefaults(context.Background(), &first))
	require.NoError(t, repo.CreateWithDefaults(context.Background(), &second))

	groups, total, err := repo.List(context.Background(), GroupFilter{IDs: []uint{second.ID}, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, groups, 1)
	require.Equal(t, "Second", groups[0].Name)

	count, err := repo.CountOwnedBy(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.MessageRead{},
		&models.MessageReaction{},
	))
	return db
}
