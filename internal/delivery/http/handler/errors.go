package handler

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/infrastructure/httpclient"
)

const messageInternalError = "Não foi possível concluir a operação. Tente novamente."

// respondError maps usecase errors to the response envelope. Provider and
// flow messages are passed through as-is.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var flowErr *entity.FlowError
	var rateErr *entity.RateLimitError
	var apiErr *httpclient.APIError

	switch {
	case errors.As(err, &flowErr):
		switch flowErr.Kind {
		case entity.KindPolicyViolation:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(
				entity.NewErrorResponse(entity.CodePolicyViolation, flowErr.Message).WithData(flowErr.Policy),
			)
		case entity.KindLinkError:
			return c.Status(fiber.StatusBadRequest).JSON(entity.NewErrorResponse(entity.CodeLinkError, flowErr.Message))
		default:
			return c.Status(fiber.StatusBadRequest).JSON(entity.NewErrorResponse(entity.CodeCommitError, flowErr.Message))
		}

	case errors.As(err, &rateErr):
		secs := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(secs, 1)))
		return c.Status(fiber.StatusTooManyRequests).JSON(
			entity.NewErrorResponse(entity.CodeRateLimited, "Muitas tentativas. Aguarde alguns minutos e tente novamente."),
		)

	case errors.As(err, &apiErr):
		status := fiber.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = fiber.StatusBadRequest
			if apiErr.StatusCode == fiber.StatusTooManyRequests {
				status = fiber.StatusTooManyRequests
			}
		}
		return c.Status(status).JSON(entity.NewErrorResponse(entity.CodeProviderError, apiErr.Message))

	case errors.Is(err, entity.ErrFlowNotFound):
		return c.Status(fiber.StatusNotFound).JSON(entity.NewErrorResponse(entity.CodeFlowNotFound, "Fluxo de redefinição não encontrado ou expirado."))

	case errors.Is(err, entity.ErrFlowConflict):
		return c.Status(fiber.StatusConflict).JSON(entity.NewErrorResponse(entity.CodeFlowConflict, "Esta redefinição já foi enviada."))

	case errors.Is(err, entity.ErrSessionRequired):
		return c.Status(fiber.StatusUnauthorized).JSON(entity.NewErrorResponse(entity.CodeSessionRequired, "Sessão de recuperação ausente ou inválida."))

	case errors.Is(err, entity.ErrInvalidEmail):
		return c.Status(fiber.StatusBadRequest).JSON(entity.NewErrorResponse(entity.CodeBadRequest, "Informe um e-mail válido."))

	case errors.Is(err, entity.ErrMailboxEmpty):
		return c.Status(fiber.StatusNotFound).JSON(entity.NewErrorResponse(entity.CodeMailboxEmpty, "Nenhum e-mail para preencher."))
	}

	logger.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(entity.NewErrorResponse(entity.CodeInternalError, messageInternalError))
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(entity.NewErrorResponse(entity.CodeBadRequest, message))
}
