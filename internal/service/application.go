package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"xnema-web/internal/config"
	deliveryhttp "xnema-web/internal/delivery/http"
	"xnema-web/internal/infrastructure/database"
	"xnema-web/internal/infrastructure/httpclient"
	"xnema-web/internal/infrastructure/identity"
	"xnema-web/internal/infrastructure/logger"
	"xnema-web/internal/infrastructure/metrics"
	"xnema-web/internal/infrastructure/ratelimit"
	"xnema-web/internal/infrastructure/redis"
	"xnema-web/internal/infrastructure/repository"
	"xnema-web/internal/infrastructure/store"
	"xnema-web/internal/server"
	"xnema-web/internal/usecase"
)

// Modules is the full dependency graph of the web backend
func Modules() fx.Option {
	return fx.Options(
		// Configuration
		config.Module,

		// Infrastructure
		logger.Module,
		metrics.Module,
		database.Module,
		redis.Module,
		store.Module,
		ratelimit.Module,
		httpclient.Module,
		identity.Module,
		repository.Module,

		// Business Logic
		usecase.Module,

		// Delivery
		deliveryhttp.Module,

		// Server
		server.Module,
	)
}

// Application wraps the fx.App with signal handling and a bounded shutdown
type Application struct {
	app         *fx.App
	stopTimeout time.Duration
}

func NewApplication(opts ...fx.Option) *Application {
	return &Application{
		app:         fx.New(opts...),
		stopTimeout: fx.DefaultTimeout,
	}
}

// Run starts the application and blocks until ctx is done, a SIGINT/SIGTERM
// arrives, or a component asks fx to shut down
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, a.app.StartTimeout())
	defer cancel()
	if err := a.app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	exitCode := 0
	select {
	case <-sigChan:
	case <-ctx.Done():
	case sig := <-a.app.Wait():
		exitCode = sig.ExitCode
	}

	return a.Shutdown(exitCode)
}

// Shutdown stops every lifecycle hook in reverse order
func (a *Application) Shutdown(exitCode int) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.stopTimeout)
	defer cancel()

	if err := a.app.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("application exited with code %d", exitCode)
	}
	return nil
}
