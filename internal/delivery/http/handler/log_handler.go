package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
)

type LogHandler struct {
	logRepo repository.APILogRepository
	logger  *zap.Logger
}

func NewLogHandler(logRepo repository.APILogRepository, logger *zap.Logger) *LogHandler {
	return &LogHandler{logRepo: logRepo, logger: logger}
}

// GetLogs returns the latest identity provider calls
func (h *LogHandler) GetLogs(c *fiber.Ctx) error {
	logs, err := h.logRepo.FindAll(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(entity.NewSuccessResponse(logs, ""))
}

// SearchLogs returns provider calls attributed to an email
func (h *LogHandler) SearchLogs(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return badRequest(c, "email parameter required")
	}

	logs, err := h.logRepo.FindByEmail(c.UserContext(), email, c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(entity.NewSuccessResponse(logs, ""))
}
