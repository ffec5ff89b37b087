package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/pgh-dev/moim-api/internal/middleware"
	"github.com/pgh-dev/moim-api/internal/repository"
	"github.com/pgh-dev/moim-api/internal/service"
)

// ChatHandler wires the websocket upgrade for room chat.
type ChatHandler struct {
	gateway service.ChatGateway
	rooms   service.RoomService
	users   repository.UserRepository
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(gateway service.ChatGateway, rooms service.RoomService, users repository.UserRepository, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		gateway: gateway,
		rooms:   rooms,
		users:   users,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds the chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	groupID := websocketQueryID(conn, "group_id")
	roomID := websocketQueryID(conn, "room_id")
	if groupID == 0 || roomID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "group_id and room_id required"))
		_ = conn.Close()
		return
	}

	userID := websocketUserID(conn)
	username := websocketUsername(conn)
	correlation := websocketCorrelationID(conn)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	// Tokens from the auth service may omit a username claim; fall back to
	// the stored profile so typing indicators carry a readable name.
	if userID != 0 && username == "" {
		if user, err := h.users.GetByID(baseCtx, userID); err == nil {
			username = user.Nickname
			if username == "" {
				username = user.Username
			}
		}
	}

	// Subscription is gated by room visibility: the admin room is simply
	// absent from the listing for anyone below admin, so a room the caller
	// cannot see behaves as if it does not exist.
	if !h.canSubscribe(baseCtx, groupID, roomID, userID) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusNotFound, "room not found"))
		_ = conn.Close()
		return
	}

	opts := service.GatewayConnectionOptions{
		UserID:        userID,
		Username:      username,
		GroupID:       groupID,
		RoomID:        roomID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Uint("user_id", userID).Uint("group_id", groupID).Uint("room_id", roomID).Msg("chat websocket connected")
	h.gateway.ServeConnection(conn, opts)
	h.logger.Info().Uint("user_id", userID).Uint("group_id", groupID).Uint("room_id", roomID).Msg("chat websocket disconnected")
}

func (h *ChatHandler) canSubscribe(ctx context.Context, groupID, roomID, userID uint) bool {
	rooms, err := h.rooms.List(ctx, groupID, userID)
	if err != nil {
		return false
	}
	for _, room := range rooms {
		if room.ID == roomID {
			return true
		}
	}
	return false
}

func websocketQueryID(conn *websocket.Conn, key string) uint {
	value := strings.TrimSpace(conn.Query(key))
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func websocketUserID(conn *websocket.Conn) uint {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case uint:
			return v
		case int:
			if v < 0 {
				return 0
			}
			return uint(v)
		case float64:
			if v < 0 {
				return 0
			}
			return uint(v)
		}
	}
	return 0
}

func websocketUsername(conn *websocket.Conn) string {
	if value := conn.Locals("username"); value != nil {
		if name, ok := value.(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func websocketCorrelationID(conn *websocket.Conn) string {
	if value := conn.Locals("correlation_id"); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
