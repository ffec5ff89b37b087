package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pgh-dev/moim-api/internal/dto"
	"github.com/pgh-dev/moim-api/internal/service"
	"github.com/pgh-dev/moim-api/internal/utils"
)

// UploadHandler accepts profile image uploads.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs the upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register binds the upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("/image", h.uploadImage)
}

func (h *UploadHandler) uploadImage(c *fiber.Ctx) error {
	if userIDFromContext(c) == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file field required")
	}

	url, contentType, err := h.service.UploadImage(withRequestContext(c), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUploadTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		default:
			return respondServiceError(c, requestLogger(h.logger, c), err)
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "image uploaded", dto.UploadResponse{
		URL:         url,
		FileName:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
	})
}
