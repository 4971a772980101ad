package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/usecase"
)

type LoginHandler struct {
	usecase usecase.RecoveryUsecase
	config  *config.Config
	logger  *zap.Logger
}

func NewLoginHandler(usecase usecase.RecoveryUsecase, cfg *config.Config, logger *zap.Logger) *LoginHandler {
	return &LoginHandler{
		usecase: usecase,
		config:  cfg,
		logger:  logger,
	}
}

type PrefillResponse struct {
	Email string `json:"email"`
}

// Prefill godoc
// @Summary Read the email carried over from a password reset, once
// @Tags login
// @Produce json
// @Param slot query string false "Slot id when the cookie is unavailable"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/login/prefill [get]
func (h *LoginHandler) Prefill(c *fiber.Ctx) error {
	name := h.config.Mailbox.CookieName
	slot := c.Cookies(name)
	if slot == "" {
		slot = c.Query("slot")
	}

	// The cookie is single-use whatever the outcome
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	email, err := h.usecase.TakePrefill(c.UserContext(), slot)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(entity.NewSuccessResponse(PrefillResponse{Email: email}, ""))
}
