package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"xnema-web/internal/config"
	"xnema-web/internal/delivery/http/handler"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/infrastructure/metrics"
)

type Router struct {
	app              *fiber.App
	config           *config.Config
	metrics          *metrics.Metrics
	recoveryHandler  *handler.RecoveryHandler
	loginHandler     *handler.LoginHandler
	dashboardHandler *handler.DashboardHandler
	healthHandler    *handler.HealthHandler
	logHandler       *handler.LogHandler
}

func NewRouter(
	cfg *config.Config,
	m *metrics.Metrics,
	recoveryHandler *handler.RecoveryHandler,
	loginHandler *handler.LoginHandler,
	dashboardHandler *handler.DashboardHandler,
	healthHandler *handler.HealthHandler,
	logHandler *handler.LogHandler,
) *Router {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: customErrorHandler,
	})

	return &Router{
		app:              app,
		config:           cfg,
		metrics:          m,
		recoveryHandler:  recoveryHandler,
		loginHandler:     loginHandler,
		dashboardHandler: dashboardHandler,
		healthHandler:    healthHandler,
		logHandler:       logHandler,
	}
}

func (r *Router) Setup() *fiber.App {
	// Middleware
	r.app.Use(recover.New())
	r.app.Use(requestid.New())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.config.App.PublicURL,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))

	if r.config.IsDevelopment() {
		r.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	r.app.Get("/health", r.healthHandler.Health)
	r.app.Get("/metrics", adaptor.HTTPHandler(r.metrics.Handler()))

	// API v1 routes
	api := r.app.Group("/api/v1")
	{
		recovery := api.Group("/recovery")
		{
			recovery.Get("/start", r.recoveryHandler.Start)
			recovery.Post("/forgot", r.recoveryHandler.ForgotPassword)
			recovery.Post("/password/validate", r.recoveryHandler.ValidatePassword)
			recovery.Get("/flows/:id", r.recoveryHandler.Status)
			recovery.Post("/flows/:id/commit", r.recoveryHandler.Commit)
		}

		api.Get("/login/prefill", r.loginHandler.Prefill)
		api.Get("/dashboard/redirect", r.dashboardHandler.Redirect)

		if !r.config.IsProduction() || r.config.Logging.ExposeAPILogs {
			logs := api.Group("/logs")
			{
				logs.Get("", r.logHandler.GetLogs)
				logs.Get("/search", r.logHandler.SearchLogs)
			}
		}
	}

	return r.app
}

func (r *Router) GetApp() *fiber.App {
	return r.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	errCode := entity.CodeInternalError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			errCode = entity.CodeBadRequest
		}
	}

	return c.Status(code).JSON(entity.NewErrorResponse(errCode, err.Error()))
}
