package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/delivery/http/handler"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/password"
	"xnema-web/internal/infrastructure/database"
	"xnema-web/internal/infrastructure/metrics"
	"xnema-web/internal/usecase"
)

type MockRecoveryUsecase struct {
	mock.Mock
}

func (m *MockRecoveryUsecase) Start(ctx context.Context, params usecase.LinkParams) (*usecase.StartResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.StartResult), args.Error(1)
}

func (m *MockRecoveryUsecase) RequestLink(ctx context.Context, email, clientIP string) error {
	args := m.Called(ctx, email, clientIP)
	return args.Error(0)
}

func (m *MockRecoveryUsecase) ValidatePassword(pw, confirm string) *usecase.PasswordCheck {
	args := m.Called(pw, confirm)
	return args.Get(0).(*usecase.PasswordCheck)
}

func (m *MockRecoveryUsecase) Status(ctx context.Context, flowID string) (*usecase.FlowStatus, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.FlowStatus), args.Error(1)
}

func (m *MockRecoveryUsecase) Commit(ctx context.Context, flowID, accessToken, pw, confirm string) (*usecase.CommitResult, error) {
	args := m.Called(ctx, flowID, accessToken, pw, confirm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CommitResult), args.Error(1)
}

func (m *MockRecoveryUsecase) TakePrefill(ctx context.Context, slotID string) (string, error) {
	args := m.Called(ctx, slotID)
	return args.String(0), args.Error(1)
}

type MockAPILogRepository struct {
	mock.Mock
}

func (m *MockAPILogRepository) Save(ctx context.Context, log *entity.APILog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockAPILogRepository) FindAll(ctx context.Context, limit int) ([]entity.APILog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]entity.APILog), args.Error(1)
}

func (m *MockAPILogRepository) FindByEmail(ctx context.Context, email string, limit int) ([]entity.APILog, error) {
	args := m.Called(ctx, email, limit)
	return args.Get(0).([]entity.APILog), args.Error(1)
}

func testConfig(env string) *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "xnema-web", Env: env, PublicURL: "https://xnema.test"},
		Store:   config.StoreConfig{Driver: config.StoreDriverMemory},
		Mailbox: config.MailboxConfig{TTL: 10 * time.Minute, CookieName: "xnema_reset_email"},
		Routes: config.RoutesConfig{
			Login:               "/login",
			SubscriberDashboard: "/dashboard",
			CreatorDashboard:    "/criador/dashboard",
			AdminDashboard:      "/admin/analytics",
			Pricing:             "/planos",
		},
	}
}

type testApp struct {
	router   *Router
	recovery *MockRecoveryUsecase
	logs     *MockAPILogRepository
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	logger := zap.NewNop()

	ta := &testApp{recovery: &MockRecoveryUsecase{}, logs: &MockAPILogRepository{}}
	ta.router = NewRouter(
		cfg,
		metrics.New(),
		handler.NewRecoveryHandler(ta.recovery, cfg, logger),
		handler.NewLoginHandler(ta.recovery, cfg, logger),
		handler.NewDashboardHandler(usecase.NewDashboardUsecase(cfg)),
		handler.NewHealthHandler(cfg, nil, &database.Database{}),
		handler.NewLogHandler(ta.logs, logger),
	)
	ta.router.Setup()

	t.Cleanup(func() {
		ta.recovery.AssertExpectations(t)
		ta.logs.AssertExpectations(t)
	})
	return ta
}

func (ta *testApp) do(t *testing.T, req *http.Request) (*http.Response, entity.APIResponse) {
	t.Helper()

	resp, err := ta.router.GetApp().Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope entity.APIResponse
	if len(body) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(body, &envelope))
	}
	return resp, envelope
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
}

func TestMetricsEndpoint(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	resp, err := ta.router.GetApp().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestStart_PassesQueryAndReturnsForm(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	want := usecase.LinkParams{AccessToken: "acc", RefreshToken: "ref", Type: "recovery"}
	ta.recovery.On("Start", mock.Anything, want).Return(&usecase.StartResult{
		Flow:    &entity.RecoveryFlow{ID: "f1", State: entity.StatePasswordResetForm, Message: usecase.MessageResetReady},
		Session: &entity.Session{AccessToken: "acc", RefreshToken: "ref"},
	}, nil).Once()

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/recovery/start?access_token=acc&refresh_token=ref&type=recovery", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "password_reset_form", data["flow"].(map[string]interface{})["state"])
	assert.Equal(t, "acc", data["session"].(map[string]interface{})["access_token"])
}

func TestStart_InvalidLink(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	ta.recovery.On("Start", mock.Anything, mock.Anything).Return(&usecase.StartResult{
		Flow:    &entity.RecoveryFlow{State: entity.StateInvalidLink, Message: "Email link is invalid or has expired"},
		Actions: []string{entity.RouteForgotPassword, entity.RouteLogin},
	}, nil).Once()

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/recovery/start?error=access_denied", nil))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, entity.CodeLinkError, body.Error.Code)
	assert.Equal(t, "Email link is invalid or has expired", body.Error.Message)
	assert.NotNil(t, body.Data)
}

func TestForgotPassword_RateLimited(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	ta.recovery.On("RequestLink", mock.Anything, "ana@example.com", mock.Anything).
		Return(&entity.RateLimitError{RetryAfter: 29500 * time.Millisecond}).Once()

	resp, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/recovery/forgot", `{"email":"ana@example.com"}`))

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get("Retry-After"))
	assert.Equal(t, entity.CodeRateLimited, body.Error.Code)
}

func TestForgotPassword_Success(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	ta.recovery.On("RequestLink", mock.Anything, "ana@example.com", mock.Anything).Return(nil).Once()

	resp, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/recovery/forgot", `{"email":"ana@example.com"}`))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, usecase.MessageLinkSent, body.Message)
}

func TestCommit_SetsPrefillCookie(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	ta.recovery.On("Commit", mock.Anything, "f1", "acc", "Abcdef1!", "Abcdef1!").Return(&usecase.CommitResult{
		Flow: &entity.RecoveryFlow{ID: "f1", State: entity.StateSucceeded},
		Resolution: &entity.Resolution{
			Tier:        usecase.TierManualLogin,
			Message:     usecase.MessageManualLogin,
			RouteName:   entity.RouteLogin,
			Route:       "/login",
			PrefillSlot: "slot-1",
		},
	}, nil).Once()

	req := jsonRequest(http.MethodPost, "/api/v1/recovery/flows/f1/commit", `{"password":"Abcdef1!","confirm_password":"Abcdef1!"}`)
	req.Header.Set("Authorization", "Bearer acc")
	resp, body := ta.do(t, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, usecase.MessageManualLogin, body.Message)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "xnema_reset_email" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "slot-1", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.NotContains(t, body.Data.(map[string]interface{})["resolution"], "prefill_slot")
}

func TestCommit_PolicyViolation(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	policy := password.Validate("abc12345", "abc12345")
	ta.recovery.On("Commit", mock.Anything, "f1", "acc", "abc12345", "abc12345").
		Return(nil, &entity.FlowError{Kind: entity.KindPolicyViolation, Message: "A senha não atende a todos os requisitos.", Policy: &policy}).Once()

	req := jsonRequest(http.MethodPost, "/api/v1/recovery/flows/f1/commit", `{"password":"abc12345","confirm_password":"abc12345"}`)
	req.Header.Set("Authorization", "Bearer acc")
	resp, body := ta.do(t, req)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, entity.CodePolicyViolation, body.Error.Code)
	rules := body.Data.(map[string]interface{})
	assert.Equal(t, false, rules["uppercase"])
	assert.Equal(t, true, rules["length"])
}

func TestCommit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"commit error verbatim", &entity.FlowError{Kind: entity.KindCommitError, Message: "Password is known to be weak"}, http.StatusBadRequest, entity.CodeCommitError, "Password is known to be weak"},
		{"not found", entity.ErrFlowNotFound, http.StatusNotFound, entity.CodeFlowNotFound, ""},
		{"conflict", entity.ErrFlowConflict, http.StatusConflict, entity.CodeFlowConflict, ""},
		{"no session", entity.ErrSessionRequired, http.StatusUnauthorized, entity.CodeSessionRequired, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, testConfig("test"))
			ta.recovery.On("Commit", mock.Anything, "f1", "", "Abcdef1!", "Abcdef1!").Return(nil, tt.err).Once()

			resp, body := ta.do(t, jsonRequest(http.MethodPost, "/api/v1/recovery/flows/f1/commit", `{"password":"Abcdef1!","confirm_password":"Abcdef1!"}`))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Error.Message)
			}
		})
	}
}

func TestPrefill_ReadsAndClearsCookie(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	ta.recovery.On("TakePrefill", mock.Anything, "slot-1").Return("ana@example.com", nil).Once()
	ta.recovery.On("TakePrefill", mock.Anything, "slot-1").Return("", entity.ErrMailboxEmpty).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/login/prefill", nil)
	req.AddCookie(&http.Cookie{Name: "xnema_reset_email", Value: "slot-1"})
	resp, body := ta.do(t, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana@example.com", body.Data.(map[string]interface{})["email"])

	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == "xnema_reset_email" && c.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared)

	resp, body = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/login/prefill?slot=slot-1", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, entity.CodeMailboxEmpty, body.Error.Code)
}

func TestDashboardRedirect(t *testing.T) {
	ta := newTestApp(t, testConfig("test"))

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/redirect?role=criador", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/criador/dashboard", body.Data.(map[string]interface{})["route"])

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/redirect?role=unknown&follow=true", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/planos", resp.Header.Get("Location"))
}

func TestLogs_HiddenInProduction(t *testing.T) {
	ta := newTestApp(t, testConfig("production"))

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogs_SearchByEmail(t *testing.T) {
	ta := newTestApp(t, testConfig("staging"))

	ta.logs.On("FindByEmail", mock.Anything, "ana@example.com", 50).
		Return([]entity.APILog{{ID: 1, Endpoint: "/auth/v1/recover", Email: "ana@example.com"}}, nil).Once()

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/logs/search?email=ana@example.com", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Data.([]interface{}), 1)

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/logs/search", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
