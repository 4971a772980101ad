package usecase

import "go.uber.org/fx"

var Module = fx.Module("usecase",
	fx.Provide(NewResolver),
	fx.Provide(NewRecoveryUsecase),
	fx.Provide(NewDashboardUsecase),
)
