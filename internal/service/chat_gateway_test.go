package service

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pgh-dev/moim-api/internal/dto"
)

type stubGatewayMessages struct {
	response dto.ChatMessageResponse
	err      error
	calls    int
}

func (s *stubGatewayMessages) Post(ctx context.Context, roomID, actorID uint, body string, replyTo *uint) (dto.ChatMessageResponse, error) {
	s.calls++
	if s.err != nil {
		return dto.ChatMessageResponse{}, s.err
	}
	response := s.response
	response.RoomID = roomID
	response.Body = body
	return response, nil
}

func (s *stubGatewayMessages) List(ctx context.Context, roomID, actorID uint, page, pageSize int) (dto.MessagePage, error) {
	return dto.MessagePage{Messages: []dto.ChatMessageResponse{}}, nil
}

type stubGatewayReads struct {
	count int
	err   error
}

func (s *stubGatewayReads) MarkRead(ctx context.Context, messageID, userID uint) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.count++
	return s.count, nil
}

func (s *stubGatewayReads) ReadCount(ctx context.Context, messageID uint) (int, error) {
	return s.count, nil
}

type stubGatewayReactions struct {
	added  bool
	counts []dto.ReactionCount
	err    error
}

func (s *stubGatewayReactions) Toggle(ctx context.Context, messageID, userID uint, emoji string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.added, nil
}

func (s *stubGatewayReactions) Counts(ctx context.Context, messageID uint) ([]dto.ReactionCount, error) {
	return s.counts, nil
}

func (s *stubGatewayReactions) UserEmojis(ctx context.Context, messageID, userID uint) ([]string, error) {
	return nil, nil
}

func newGatewayForTest(t *testing.T, messages MessageService, reads ReadTracker, reactions ReactionService, redisClient *redis.Client) *chatGateway {
	t.Helper()
	gateway := NewChatGateway(messages, reads, reactions, redisClient, nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	concrete, ok := gateway.(*chatGateway)
	require.True(t, ok)
	return concrete
}

func newTestClient(g *chatGateway, userID uint, groupID, roomID uint, buffer int) *gatewayClient {
	return &gatewayClient{
		send: make(chan dto.ChatEvent, buffer),
		options: GatewayConnectionOptions{
			UserID:  userID,
			GroupID: groupID,
			RoomID:  roomID,
		},
		gateway: g,
		closed:  make(chan struct{}),
		baseCtx: context.Background(),
	}
}

func drainEvents(client *gatewayClient) []dto.ChatEvent {
	var out []dto.ChatEvent
	for {
		select {
		case event := <-client.send:
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestRoomTopicFormat(t *testing.T) {
	require.Equal(t, "group:3/room:9", RoomTopic(3, 9))
}

func TestGatewayBroadcastReachesEverySubscriberIncludingSender(t *testing.T) {
	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, &stubGatewayReactions{}, nil)

	sender := newTestClient(g, 1, 10, 20, 4)
	peer := newTestClient(g, 2, 10, 20, 4)
	otherRoom := newTestClient(g, 3, 10, 21, 4)
	g.hub.subscribe(sender)
	g.hub.subscribe(peer)
	g.hub.subscribe(otherRoom)

	g.handleAction(context.Background(), sender, dto.ChatAction{Action: dto.ActionSend, Body: "hello"})

	senderEvents := drainEvents(sender)
	require.Len(t, senderEvents, 1, "the sender receives its own message via broadcast")
	require.Equal(t, dto.EventMessage, senderEvents[0].Event)
	require.Equal(t, "hello", senderEvents[0].Message.Body)

	peerEvents := drainEvents(peer)
	require.Len(t, peerEvents, 1)
	require.Equal(t, dto.EventMessage, peerEvents[0].Event)

	require.Empty(t, drainEvents(otherRoom), "room topics are isolated")
}

func TestGatewaySendFailureIsPrivate(t *testing.T) {
	messages := &stubGatewayMessages{err: ErrForbidden}
	g := newGatewayForTest(t, messages, &stubGatewayReads{}, &stubGatewayReactions{}, nil)

	sender := newTestClient(g, 5, 10, 20, 4)
	peer := newTestClient(g, 6, 10, 20, 4)
	g.hub.subscribe(sender)
	g.hub.subscribe(peer)

	g.handleAction(context.Background(), sender, dto.ChatAction{Action: dto.ActionSend, Body: "hello"})

	senderEvents := drainEvents(sender)
	require.Len(t, senderEvents, 1)
	require.Equal(t, dto.EventError, senderEvents[0].Event)
	require.Equal(t, "forbidden", senderEvents[0].Error.Code)
	require.Equal(t, dto.ActionSend, senderEvents[0].Error.Action)

	require.Empty(t, drainEvents(peer), "peers never observe another client's failure")
}

func TestGatewayRejectsMalformedAction(t *testing.T) {
	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, &stubGatewayReactions{}, nil)

	client := newTestClient(g, 5, 10, 20, 4)
	g.hub.subscribe(client)

	g.handleAction(context.Background(), client, dto.ChatAction{Action: "shout"})

	events := drainEvents(client)
	require.Len(t, events, 1)
	require.Equal(t, dto.EventError, events[0].Event)
	require.Equal(t, "invalid_argument", events[0].Error.Code)
}

func TestGatewayTypingIndicator(t *testing.T) {
	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, &stubGatewayReactions{}, nil)

	typer := newTestClient(g, 5, 10, 20, 4)
	typer.options.Username = "mina"
	peer := newTestClient(g, 6, 10, 20, 4)
	anonymous := newTestClient(g, 0, 10, 20, 4)
	g.hub.subscribe(typer)
	g.hub.subscribe(peer)
	g.hub.subscribe(anonymous)

	g.handleAction(context.Background(), typer, dto.ChatAction{Action: dto.ActionTypingStart})

	peerEvents := drainEvents(peer)
	require.Len(t, peerEvents, 1)
	require.Equal(t, dto.EventTyping, peerEvents[0].Event)
	require.True(t, peerEvents[0].Typing.IsTyping)
	require.Equal(t, "mina", peerEvents[0].Typing.Username)

	drainEvents(typer)
	drainEvents(anonymous)

	g.handleAction(context.Background(), anonymous, dto.ChatAction{Action: dto.ActionTypingStart})
	anonEvents := drainEvents(anonymous)
	require.Len(t, anonEvents, 1)
	require.Equal(t, dto.EventError, anonEvents[0].Event)
	require.Equal(t, "unauthorized", anonEvents[0].Error.Code)
	require.Empty(t, drainEvents(peer), "anonymous typing goes nowhere")
}

func TestGatewayMarkReadBroadcastsCount(t *testing.T) {
	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, &stubGatewayReactions{}, nil)

	reader := newTestClient(g, 5, 10, 20, 4)
	peer := newTestClient(g, 6, 10, 20, 4)
	g.hub.subscribe(reader)
	g.hub.subscribe(peer)

	g.handleAction(context.Background(), reader, dto.ChatAction{Action: dto.ActionMarkRead, MessageID: 7})

	peerEvents := drainEvents(peer)
	require.Len(t, peerEvents, 1)
	require.Equal(t, dto.EventRead, peerEvents[0].Event)
	require.Equal(t, uint(7), peerEvents[0].Read.MessageID)
	require.Equal(t, uint(5), peerEvents[0].Read.UserID)
	require.Equal(t, 1, peerEvents[0].Read.ReadCount)
}

func TestGatewayReactionBroadcastsAggregates(t *testing.T) {
	reactions := &stubGatewayReactions{added: true, counts: []dto.ReactionCount{{Emoji: "👍", Count: 2}}}
	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, reactions, nil)

	actor := newTestClient(g, 5, 10, 20, 4)
	peer := newTestClient(g, 6, 10, 20, 4)
	g.hub.subscribe(actor)
	g.hub.subscribe(peer)

	g.handleAction(context.Background(), actor, dto.ChatAction{Action: dto.ActionToggleReaction, MessageID: 7, Emoji: "👍"})

	peerEvents := drainEvents(peer)
	require.Len(t, peerEvents, 1)
	require.Equal(t, dto.EventReaction, peerEvents[0].Event)
	require.True(t, peerEvents[0].Reaction.Added)
	require.Equal(t, "👍", peerEvents[0].Reaction.Emoji)
	require.Equal(t, []dto.ReactionCount{{Emoji: "👍", Count: 2}}, peerEvents[0].Reaction.Counts)
}

func TestGatewaySlowSubscriberDropsEventsInsteadOfBlocking(t *testing.T) {
	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, &stubGatewayReactions{}, nil)

	slow := newTestClient(g, 6, 10, 20, 1)
	g.hub.subscribe(slow)

	g.hub.broadcast(RoomTopic(10, 20), dto.ChatEvent{Event: dto.EventTyping})
	g.hub.broadcast(RoomTopic(10, 20), dto.ChatEvent{Event: dto.EventTyping})
	g.hub.broadcast(RoomTopic(10, 20), dto.ChatEvent{Event: dto.EventTyping})

	require.Len(t, drainEvents(slow), 1, "overflow is dropped, never queued unbounded")
}

func TestGatewayUnsubscribeStopsDelivery(t *testing.T) {
	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, &stubGatewayReactions{}, nil)

	client := newTestClient(g, 5, 10, 20, 4)
	g.hub.subscribe(client)
	g.hub.unsubscribe(client)

	g.hub.broadcast(RoomTopic(10, 20), dto.ChatEvent{Event: dto.EventTyping})
	require.Empty(t, drainEvents(client))
}

func TestGatewayLastMessageCacheRoundTrip(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	g := newGatewayForTest(t, &stubGatewayMessages{}, &stubGatewayReads{}, &stubGatewayReactions{}, redisClient)
	ctx := context.Background()

	require.Nil(t, g.fetchLastMessage(ctx, 10, 20), "empty cache yields nothing")

	message := dto.ChatMessageResponse{ID: 42, RoomID: 20, Body: "cached", Username: "mina"}
	g.cacheLastMessage(ctx, 10, message)

	cached := g.fetchLastMessage(ctx, 10, 20)
	require.NotNil(t, cached)
	require.Equal(t, uint(42), cached.ID)
	require.Equal(t, "cached", cached.Body)

	require.Nil(t, g.fetchLastMessage(ctx, 10, 21), "cache keys are room scoped")
}

func TestGatewayErrorCodeMapping(t *testing.T) {
	require.Equal(t, "unauthorized", errorCode(ErrUnauthenticated))
	require.Equal(t, "forbidden", errorCode(ErrForbidden))
	require.Equal(t, "not_found", errorCode(ErrNotFound))
	require.Equal(t, "invalid_argument", errorCode(ErrInvalidArgument))
	require.Equal(t, "invalid_state", errorCode(ErrInvalidState))
	require.Equal(t, "internal", errorCode(context.DeadlineExceeded))
}
