package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/infrastructure/database"
	"xnema-web/internal/infrastructure/redis"
)

type HealthHandler struct {
	config *config.Config
	redis  *redis.RedisClient
	db     *database.Database
}

func NewHealthHandler(cfg *config.Config, redisClient *redis.RedisClient, db *database.Database) *HealthHandler {
	return &HealthHandler{
		config: cfg,
		redis:  redisClient,
		db:     db,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
}

// Health godoc
// @Summary Health check
// @Description Check if the service and its stores are reachable
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} entity.APIResponse
// @Failure 503 {object} entity.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   config.Version,
		Checks:    map[string]string{"store": h.config.Store.Driver},
	}

	if h.redis != nil {
		resp.Checks["redis"] = "ok"
		if err := h.redis.Client.Ping(ctx).Err(); err != nil {
			resp.Checks["redis"] = err.Error()
			resp.Status = "degraded"
		}
	}

	if h.db.Enabled() {
		resp.Checks["database"] = "ok"
		if err := h.db.DB.PingContext(ctx); err != nil {
			resp.Checks["database"] = err.Error()
			resp.Status = "degraded"
		}
	}

	if resp.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(entity.NewSuccessResponse(resp, "Service is degraded"))
	}
	return c.JSON(entity.NewSuccessResponse(resp, "Service is healthy"))
}
