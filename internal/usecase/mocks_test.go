package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/metrics"
	"xnema-web/internal/infrastructure/ratelimit"
	"xnema-web/internal/infrastructure/store"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SetSession(ctx context.Context, accessToken, refreshToken string) (*entity.Session, error) {
	args := m.Called(ctx, accessToken, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockProvider) GetUser(ctx context.Context, accessToken string) (*entity.Session, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockProvider) UpdatePassword(ctx context.Context, accessToken, password string) error {
	args := m.Called(ctx, accessToken, password)
	return args.Error(0)
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockProvider) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	args := m.Called(ctx, email, redirectTo)
	return args.Error(0)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindByUserID(ctx context.Context, session *entity.Session) (*entity.UserProfile, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserProfile), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "xnema-web", PublicURL: "https://xnema.test"},
		Identity: config.IdentityConfig{
			ProfileTimeout: time.Second,
		},
		Recovery: config.RecoveryConfig{
			LinkTTL:          time.Hour,
			FlowTTL:          2 * time.Hour,
			AllowedFlowTypes: []string{"recovery"},
		},
		Mailbox:   config.MailboxConfig{TTL: time.Minute, CookieName: "xnema_reset_email"},
		RateLimit: config.RateLimitConfig{ForgotPerWindow: 2, Window: time.Minute},
		Routes: config.RoutesConfig{
			Login:               "/login",
			ForgotPassword:      "/esqueci-senha",
			ResetPassword:       "/redefinir-senha",
			SubscriberDashboard: "/dashboard",
			CreatorDashboard:    "/criador/dashboard",
			AdminDashboard:      "/admin/analytics",
			Pricing:             "/planos",
		},
	}
}

type fixture struct {
	uc       *recoveryUsecase
	provider *MockProvider
	profiles *MockProfileRepository
	flows    repository.FlowRepository
	mailbox  repository.Mailbox
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testConfig()
	logger := zap.NewNop()
	m := metrics.New()

	f := &fixture{
		provider: &MockProvider{},
		profiles: &MockProfileRepository{},
		flows:    store.NewMemoryFlowRepository(),
		mailbox:  store.NewMemoryMailbox(cfg.Mailbox.TTL),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	resolver := NewResolver(cfg, f.provider, f.profiles, f.mailbox, m, logger)
	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimit.ForgotPerWindow, cfg.RateLimit.Window)

	f.uc = NewRecoveryUsecase(cfg, f.provider, f.profiles, f.flows, f.mailbox, limiter, resolver, m, logger).(*recoveryUsecase)
	f.uc.now = func() time.Time { return f.now }

	t.Cleanup(func() {
		f.provider.AssertExpectations(t)
		f.profiles.AssertExpectations(t)
	})
	return f
}
