package repository

import (
	"go.uber.org/fx"

	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/httpclient"
)

var Module = fx.Module("repository",
	fx.Provide(NewProfileRepository),
	fx.Provide(NewAPILogRepository),
	fx.Provide(
		func(r repository.APILogRepository) httpclient.APILogSaver {
			return r
		},
	),
)
