package http

import (
	"go.uber.org/fx"

	"xnema-web/internal/delivery/http/handler"
	"xnema-web/internal/delivery/http/router"
)

var Module = fx.Module("http",
	fx.Provide(
		handler.NewRecoveryHandler,
		handler.NewLoginHandler,
		handler.NewDashboardHandler,
		handler.NewHealthHandler,
		handler.NewLogHandler,
		router.NewRouter,
	),
)
