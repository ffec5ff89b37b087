package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/service"
	"github.com/pgh-dev/moim-api/internal/utils"
)

// RoomHandler provides HTTP endpoints for chat rooms and message history.
type RoomHandler struct {
	rooms     service.RoomService
	messages  service.MessageService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRoomHandler constructs a handler instance.
func NewRoomHandler(rooms service.RoomService, messages service.MessageService, validator *validator.Validate, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		messages:  messages,
		validator: validator,
		logger:    logger.With().Str("component", "room_handler").Logger(),
	}
}

// Register binds the room routes. Room listing and creation are nested under
// the owning group; room-scoped operations address the room directly.
func (h *RoomHandler) Register(groups fiber.Router, rooms fiber.Router) {
	groups.Get("/:id/rooms", h.list)
	groups.Post("/:id/rooms", h.create)

	rooms.Put("/:id", h.update)
	rooms.Delete("/:id", h.delete)
	rooms.Get("/:id/messages", h.history)
}

func (h *RoomHandler) list(c *fiber.Ctx) error {
	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	response, err := h.rooms.List(withRequestContext(c), groupID, userIDFromContext(c))
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "rooms", response)
}

func (h *RoomHandler) create(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	var payload dto.RoomCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.rooms.Create(withRequestContext(c), groupID, actorID, payload)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "room created", response)
}

func (h *RoomHandler) update(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	roomID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid room id")
	}

	var payload dto.RoomUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.rooms.Update(withRequestContext(c), roomID, actorID, payload)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "room updated", response)
}

func (h *RoomHandler) delete(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	roomID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid room id")
	}

	if err := h.rooms.Delete(withRequestContext(c), roomID, actorID); err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "room deleted", nil)
}

func (h *RoomHandler) history(c *fiber.Ctx) error {
	roomID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid room id")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	response, err := h.messages.List(withRequestContext(c), roomID, userIDFromContext(c), page, pageSize)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "messages", response)
}
