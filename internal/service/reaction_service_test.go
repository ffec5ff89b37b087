package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pgh-dev/moim-api/internal/models"
)

func TestReactionToggleValidation(t *testing.T) {
	messages := newStubMessageRepo()
	reactions := newStubReactionRepo()
	svc := NewReactionService(reactions, messages, zerolog.Nop())
	ctx := context.Background()

	message := models.ChatMessage{RoomID: 1, UserID: 1, Body: "hello"}
	require.NoError(t, messages.Create(ctx, &message))

	_, err := svc.Toggle(ctx, message.ID, 0, "👍")
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Toggle(ctx, message.ID, 3, "   ")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Toggle(ctx, 404, 3, "👍")
	require.ErrorIs(t, err, ErrNotFound)

	added, err := svc.Toggle(ctx, message.ID, 3, "👍")
	require.NoError(t, err)
	require.True(t, added)

	added, err = svc.Toggle(ctx, message.ID, 3, "👍")
	require.NoError(t, err)
	require.False(t, added, "the second toggle removes the reaction")

	counts, err := svc.Counts(ctx, message.ID)
	require.NoError(t, err)
	require.Empty(t, counts)
}
