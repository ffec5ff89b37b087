package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/service"
	"github.com/pgh-dev/moim-api/internal/utils"
)

// GroupHandler provides HTTP endpoints for community groups and membership.
type GroupHandler struct {
	groups     service.GroupService
	membership service.MembershipService
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewGroupHandler constructs a handler instance.
func NewGroupHandler(groups service.GroupService, membership service.MembershipService, validator *validator.Validate, logger zerolog.Logger) *GroupHandler {
	return &GroupHandler{
		groups:     groups,
		membership: membership,
		validator:  validator,
		logger:     logger.With().Str("component", "group_handler").Logger(),
	}
}

// Register binds the group routes.
func (h *GroupHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/:id", h.detail)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)

	router.Post("/:id/join", h.join)
	router.Post("/:id/leave", h.leave)
	router.Get("/:id/members", h.listMembers)
	router.Put("/:id/members/:userId/admin", h.setAdmin)
	router.Put("/:id/members/:userId/display-name", h.setDisplayName)
}

func (h *GroupHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}
	mine := strings.ToLower(strings.TrimSpace(c.Query("mine"))) == "true"

	response, err := h.groups.List(withRequestContext(c), userIDFromContext(c), page, pageSize, mine)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "groups", response)
}

func (h *GroupHandler) create(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.GroupCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.groups.Create(withRequestContext(c), actorID, payload)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "group created", response)
}

func (h *GroupHandler) detail(c *fiber.Ctx) error {
	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	response, err := h.groups.Detail(withRequestContext(c), userIDFromContext(c), groupID)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "group", response)
}

func (h *GroupHandler) update(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	var payload dto.GroupUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.groups.Update(withRequestContext(c), actorID, groupID, payload)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "group updated", response)
}

func (h *GroupHandler) delete(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	var payload dto.GroupDeleteRequest
	if err := c.BodyParser(&payload); err != nil && len(c.Body()) > 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.groups.Delete(withRequestContext(c), actorID, groupID, payload); err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "group deleted", nil)
}

func (h *GroupHandler) join(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.membership.Join(withRequestContext(c), groupID, actorID); err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "joined group", nil)
}

func (h *GroupHandler) leave(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.membership.Leave(withRequestContext(c), groupID, actorID); err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "left group", nil)
}

func (h *GroupHandler) listMembers(c *fiber.Ctx) error {
	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	members, err := h.membership.ListMembers(withRequestContext(c), groupID)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "members", members)
}

func (h *GroupHandler) setAdmin(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}
	targetID, err := parseParamID(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.MemberAdminRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.membership.SetAdmin(withRequestContext(c), groupID, actorID, targetID, payload.IsAdmin); err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "member updated", nil)
}

func (h *GroupHandler) setDisplayName(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	if actorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	groupID, err := parseParamID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}
	targetID, err := parseParamID(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.MemberDisplayNameRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid display name")
	}

	if err := h.membership.SetDisplayName(withRequestContext(c), groupID, actorID, targetID, payload.DisplayName); err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "display name updated", nil)
}
