package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/usecase"
)

type RecoveryHandler struct {
	usecase usecase.RecoveryUsecase
	config  *config.Config
	logger  *zap.Logger
}

func NewRecoveryHandler(usecase usecase.RecoveryUsecase, cfg *config.Config, logger *zap.Logger) *RecoveryHandler {
	return &RecoveryHandler{
		usecase: usecase,
		config:  cfg,
		logger:  logger,
	}
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type PasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Start godoc
// @Summary Enter the recovery flow from an emailed link
// @Description Forward the reset page query string. Returns the entered state and,
//
//	when the reset form is reached, the bound session tokens.
//
// @Tags recovery
// @Produce json
// @Param access_token query string false "Recovery access token"
// @Param refresh_token query string false "Recovery refresh token"
// @Param type query string false "Link flow type"
// @Param error query string false "Provider error"
// @Param error_description query string false "Provider error description"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Router /api/v1/recovery/start [get]
func (h *RecoveryHandler) Start(c *fiber.Ctx) error {
	var params usecase.LinkParams
	if err := c.QueryParser(&params); err != nil {
		return badRequest(c, "Parâmetros do link inválidos.")
	}

	result, err := h.usecase.Start(c.UserContext(), params)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if result.Flow.State == entity.StateInvalidLink {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeLinkError, result.Flow.Message).WithData(result),
		)
	}

	return c.JSON(entity.NewSuccessResponse(result, result.Flow.Message))
}

// ForgotPassword godoc
// @Summary Request a password recovery email
// @Tags recovery
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Email"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 429 {object} entity.APIResponse
// @Router /api/v1/recovery/forgot [post]
func (h *RecoveryHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.usecase.RequestLink(c.UserContext(), req.Email, c.IP()); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(entity.NewSuccessResponse(nil, usecase.MessageLinkSent))
}

// ValidatePassword godoc
// @Summary Evaluate the password policy for a candidate
// @Tags recovery
// @Accept json
// @Produce json
// @Param request body PasswordRequest true "Candidate"
// @Success 200 {object} entity.APIResponse
// @Router /api/v1/recovery/password/validate [post]
func (h *RecoveryHandler) ValidatePassword(c *fiber.Ctx) error {
	var req PasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	return c.JSON(entity.NewSuccessResponse(h.usecase.ValidatePassword(req.Password, req.ConfirmPassword), ""))
}

// Status godoc
// @Summary Get a recovery flow with its countdown
// @Tags recovery
// @Produce json
// @Param id path string true "Flow ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/recovery/flows/{id} [get]
func (h *RecoveryHandler) Status(c *fiber.Ctx) error {
	status, err := h.usecase.Status(c.UserContext(), utils.CopyString(c.Params("id")))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(entity.NewSuccessResponse(status, status.Flow.Message))
}

// Commit godoc
// @Summary Submit the new password
// @Description Requires the recovery access token as a Bearer token. On success the
//
//	resolution says where to send the user next.
//
// @Tags recovery
// @Accept json
// @Produce json
// @Param id path string true "Flow ID"
// @Param request body PasswordRequest true "New password"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 401 {object} entity.APIResponse
// @Failure 409 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Router /api/v1/recovery/flows/{id}/commit [post]
func (h *RecoveryHandler) Commit(c *fiber.Ctx) error {
	var req PasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.usecase.Commit(c.UserContext(), utils.CopyString(c.Params("id")), bearerToken(c), req.Password, req.ConfirmPassword)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if slot := result.Resolution.PrefillSlot; slot != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.config.Mailbox.CookieName,
			Value:    slot,
			Path:     "/",
			Expires:  time.Now().Add(h.config.Mailbox.TTL),
			HTTPOnly: true,
			Secure:   h.config.IsProduction(),
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	return c.JSON(entity.NewSuccessResponse(result, result.Resolution.Message))
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
