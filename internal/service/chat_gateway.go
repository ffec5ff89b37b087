package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/observability"
)

const (
	gatewayRedisTTL       = 30 * time.Minute
	gatewaySendBufferSize = 32
	gatewayPingInterval   = 30 * time.Second
)

// RoomTopic is the broadcast channel name for a room's subscribers.
func RoomTopic(groupID, roomID uint) string {
	return fmt.Sprintf("group:%d/room:%d", groupID, roomID)
}

// GatewayConnectionOptions wraps metadata resolved during the HTTP upgrade.
// UserID zero means the connection is anonymous; it stays usable, but every
// action needing an actor fails privately instead of tearing it down.
type GatewayConnectionOptions struct {
	UserID        uint
	Username      string
	GroupID       uint
	RoomID        uint
	CorrelationID string
	Context       context.Context
}

// ChatGateway is the concurrent front door for room chat: it owns the topic
// subscription registry, authenticates each inbound action independently and
// fans results out to every subscriber of the room's topic.
type ChatGateway interface {
	ServeConnection(conn *websocket.Conn, opts GatewayConnectionOptions)
}

type chatGateway struct {
	messages   MessageService
	reads      ReadTracker
	reactions  ReactionService
	redis      *redis.Client
	redisCache string
	nats       *nats.Conn
	validator  *validator.Validate
	logger     zerolog.Logger
	hub        *gatewayHub
	nodeID     string
}

// gatewayHub tracks active clients per room topic. Publishes take the read
// lock so concurrent broadcasts never block each other; only subscribe and
// unsubscribe take the write lock.
type gatewayHub struct {
	mu     sync.RWMutex
	topics map[string]map[*gatewayClient]struct{}
	log    zerolog.Logger
}

type gatewayClient struct {
	conn    *websocket.Conn
	send    chan dto.ChatEvent
	options GatewayConnectionOptions
	gateway *chatGateway
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

// NewChatGateway creates the websocket chat gateway. redisClient and natsConn
// may be nil; the corresponding plumbing is then skipped.
func NewChatGateway(
	messages MessageService,
	reads ReadTracker,
	reactions ReactionService,
	redisClient *redis.Client,
	natsConn *nats.Conn,
	validate *validator.Validate,
	logger zerolog.Logger,
) ChatGateway {
	hub := &gatewayHub{
		topics: make(map[string]map[*gatewayClient]struct{}),
		log:    logger.With().Str("component", "chat_hub").Logger(),
	}

	return &chatGateway{
		messages:   messages,
		reads:      reads,
		reactions:  reactions,
		redis:      redisClient,
		redisCache: "moim:chat:last",
		nats:       natsConn,
		validator:  validate,
		logger:     logger.With().Str("component", "chat_gateway").Logger(),
		hub:        hub,
		nodeID:     uuid.NewString(),
	}
}

func (g *chatGateway) ServeConnection(conn *websocket.Conn, opts GatewayConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &gatewayClient{
		conn:    conn,
		send:    make(chan dto.ChatEvent, gatewaySendBufferSize),
		options: opts,
		gateway: g,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	g.hub.subscribe(client)
	observability.ChatConnectionsTotal().Inc()

	if last := g.fetchLastMessage(baseCtx, opts.GroupID, opts.RoomID); last != nil {
		select {
		case client.send <- dto.ChatEvent{Event: dto.EventMessage, Message: last}:
		default:
			g.logger.Debug().Uint("room_id", opts.RoomID).Msg("dropping cached message for slow subscriber")
		}
	}

	go client.writer()
	client.reader()
}

func (g *chatGateway) handleAction(ctx context.Context, client *gatewayClient, action dto.ChatAction) {
	if err := g.validator.Struct(action); err != nil {
		client.deliverError(action.Action, ErrInvalidArgument)
		return
	}

	switch action.Action {
	case dto.ActionSend:
		g.handleSend(ctx, client, action)
	case dto.ActionTypingStart, dto.ActionTypingStop:
		g.handleTyping(client, action.Action == dto.ActionTypingStart)
	case dto.ActionMarkRead:
		g.handleMarkRead(ctx, client, action)
	case dto.ActionToggleReaction:
		g.handleToggleReaction(ctx, client, action)
	default:
		client.deliverError(action.Action, ErrInvalidArgument)
	}
}

// handleSend persists and broadcasts a message. Failures of any kind reach
// only the sender as a private error frame; the room never observes them.
func (g *chatGateway) handleSend(ctx context.Context, client *gatewayClient, action dto.ChatAction) {
	message, err := g.messages.Post(ctx, client.options.RoomID, client.options.UserID, action.Body, action.ReplyToMessageID)
	if err != nil {
		g.logger.Warn().Err(err).Uint("room_id", client.options.RoomID).Msg("send action failed")
		client.deliverError(action.Action, err)
		return
	}

	event := dto.ChatEvent{Event: dto.EventMessage, Message: &message}
	g.cacheLastMessage(ctx, client.options.GroupID, message)
	g.broadcast(client.options.GroupID, client.options.RoomID, event)
	g.publish(client.options.RoomID, event)

	observability.ChatMessagesSent().WithLabelValues(dto.ActionSend).Inc()
}

// handleTyping fans out an ephemeral indicator. No persistence, no delivery
// guarantee; the only requirement on the actor is being resolvable.
func (g *chatGateway) handleTyping(client *gatewayClient, started bool) {
	if client.options.UserID == 0 {
		client.deliverError(dto.ActionTypingStart, ErrUnauthenticated)
		return
	}

	event := dto.ChatEvent{Event: dto.EventTyping, Typing: &dto.TypingEvent{
		UserID:   client.options.UserID,
		Username: client.options.Username,
		IsTyping: started,
	}}
	g.broadcast(client.options.GroupID, client.options.RoomID, event)
}

func (g *chatGateway) handleMarkRead(ctx context.Context, client *gatewayClient, action dto.ChatAction) {
	count, err := g.reads.MarkRead(ctx, action.MessageID, client.options.UserID)
	if err != nil {
		client.deliverError(action.Action, err)
		return
	}

	event := dto.ChatEvent{Event: dto.EventRead, Read: &dto.ReadEvent{
		MessageID: action.MessageID,
		UserID:    client.options.UserID,
		ReadCount: count,
	}}
	g.broadcast(client.options.GroupID, client.options.RoomID, event)
	g.publish(client.options.RoomID, event)
}

func (g *chatGateway) handleToggleReaction(ctx context.Context, client *gatewayClient, action dto.ChatAction) {
	added, err := g.reactions.Toggle(ctx, action.MessageID, client.options.UserID, action.Emoji)
	if err != nil {
		client.deliverError(action.Action, err)
		return
	}

	counts, err := g.reactions.Counts(ctx, action.MessageID)
	if err != nil {
		client.deliverError(action.Action, err)
		return
	}

	event := dto.ChatEvent{Event: dto.EventReaction, Reaction: &dto.ReactionEvent{
		MessageID: action.MessageID,
		UserID:    client.options.UserID,
		Emoji:     action.Emoji,
		Added:     added,
		Counts:    counts,
	}}
	g.broadcast(client.options.GroupID, client.options.RoomID, event)
	g.publish(client.options.RoomID, event)
}

func (g *chatGateway) broadcast(groupID, roomID uint, event dto.ChatEvent) {
	g.hub.broadcast(RoomTopic(groupID, roomID), event)
}

// publish mirrors room events onto the NATS subject for external consumers.
// Delivery to connected clients never depends on it.
func (g *chatGateway) publish(roomID uint, event dto.ChatEvent) {
	if g.nats == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to marshal room event for nats")
		return
	}

	subject := fmt.Sprintf("moim.chat.room.%d", roomID)
	if err := g.nats.Publish(subject, payload); err != nil {
		g.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish room event")
	}
}

func (g *chatGateway) cacheLastMessage(ctx context.Context, groupID uint, message dto.ChatMessageResponse) {
	if g.redis == nil {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to marshal message for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", g.redisCache, RoomTopic(groupID, message.RoomID))
	if err := g.redis.Set(ctx, key, payload, gatewayRedisTTL).Err(); err != nil {
		g.logger.Warn().Err(err).Msg("failed to cache last message")
	}
}

func (g *chatGateway) fetchLastMessage(ctx context.Context, groupID, roomID uint) *dto.ChatMessageResponse {
	if g.redis == nil {
		return nil
	}

	key := fmt.Sprintf("%s:%s", g.redisCache, RoomTopic(groupID, roomID))
	result, err := g.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.ChatMessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		g.logger.Warn().Err(err).Msg("failed to unmarshal cached message")
		return nil
	}
	return &message
}

func (h *gatewayHub) subscribe(client *gatewayClient) {
	topic := RoomTopic(client.options.GroupID, client.options.RoomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.topics[topic]; !exists {
		h.topics[topic] = make(map[*gatewayClient]struct{})
	}
	h.topics[topic][client] = struct{}{}
	h.log.Debug().Str("topic", topic).Uint("user_id", client.options.UserID).Msg("subscriber joined")
}

func (h *gatewayHub) unsubscribe(client *gatewayClient) {
	topic := RoomTopic(client.options.GroupID, client.options.RoomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
	h.log.Debug().Str("topic", topic).Uint("user_id", client.options.UserID).Msg("subscriber left")
}

func (h *gatewayHub) broadcast(topic string, event dto.ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.topics[topic] {
		select {
		case client.send <- event:
		default:
			observability.ChatEventsDropped().Inc()
			h.log.Warn().Str("topic", topic).Uint("user_id", client.options.UserID).Msg("dropping event for slow subscriber")
		}
	}
}

func (c *gatewayClient) reader() {
	defer c.close()

	for {
		var action dto.ChatAction
		if err := c.conn.ReadJSON(&action); err != nil {
			c.gateway.logger.Debug().Err(err).Msg("gateway read loop ended")
			return
		}

		c.gateway.handleAction(c.baseCtx, c, action)

		select {
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *gatewayClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.gateway.logger.Debug().Err(err).Msg("gateway write loop terminated")
				return
			}
		case <-time.After(gatewayPingInterval):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.gateway.logger.Debug().Err(err).Msg("gateway ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// deliverError queues a private error frame on this client only. Other
// subscribers must never learn that the action happened.
func (c *gatewayClient) deliverError(action string, err error) {
	event := dto.ChatEvent{Event: dto.EventError, Error: &dto.ErrorEvent{
		Action:  action,
		Code:    errorCode(err),
		Message: err.Error(),
	}}

	select {
	case c.send <- event:
	default:
		observability.ChatEventsDropped().Inc()
	}
}

func (c *gatewayClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.gateway.hub.unsubscribe(c)
		_ = c.conn.Close()
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "internal"
	}
}
