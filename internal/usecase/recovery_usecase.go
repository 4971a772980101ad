package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/password"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/identity"
	"xnema-web/internal/infrastructure/metrics"
	"xnema-web/internal/infrastructure/ratelimit"
)

const (
	submitLockTTL = 2 * time.Minute

	MessageLinkSent = "Se o e-mail estiver cadastrado, você receberá um link para redefinir sua senha."
)

// StartResult is the state entered from an arrival URL. Session is only set
// when the reset form was reached and is never stored.
type StartResult struct {
	Flow    *entity.RecoveryFlow `json:"flow"`
	Session *entity.Session      `json:"session,omitempty"`
	Actions []string             `json:"actions,omitempty"`
}

// PasswordCheck is the live policy evaluation of a candidate
type PasswordCheck struct {
	Rules     password.Result   `json:"rules"`
	Strength  password.Strength `json:"strength"`
	Failed    []string          `json:"failed"`
	CanSubmit bool              `json:"can_submit"`
}

type FlowStatus struct {
	Flow             *entity.RecoveryFlow `json:"flow"`
	RemainingSeconds int64                `json:"remaining_seconds"`
	Remaining        string               `json:"remaining"`
	CanSubmit        bool                 `json:"can_submit"`
}

type CommitResult struct {
	Flow       *entity.RecoveryFlow `json:"flow"`
	Resolution *entity.Resolution   `json:"resolution"`
}

type RecoveryUsecase interface {
	// Start dispatches an arrival URL and binds its tokens to a session
	Start(ctx context.Context, params LinkParams) (*StartResult, error)

	// RequestLink asks the provider to email a recovery link
	RequestLink(ctx context.Context, email, clientIP string) error

	// ValidatePassword evaluates the password policy without side effects
	ValidatePassword(pw, confirm string) *PasswordCheck

	// Status returns the stored flow with its advisory countdown
	Status(ctx context.Context, flowID string) (*FlowStatus, error)

	// Commit submits the new password and resolves the post-reset session
	Commit(ctx context.Context, flowID, accessToken, pw, confirm string) (*CommitResult, error)

	// TakePrefill reads the carried-over login email once
	TakePrefill(ctx context.Context, slotID string) (string, error)
}

type recoveryUsecase struct {
	identity identity.Provider
	profiles repository.ProfileRepository
	flows    repository.FlowRepository
	mailbox  repository.Mailbox
	limiter  ratelimit.Limiter
	resolver *Resolver
	config   *config.Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewRecoveryUsecase(
	cfg *config.Config,
	provider identity.Provider,
	profiles repository.ProfileRepository,
	flows repository.FlowRepository,
	mailbox repository.Mailbox,
	limiter ratelimit.Limiter,
	resolver *Resolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) RecoveryUsecase {
	return &recoveryUsecase{
		identity: provider,
		profiles: profiles,
		flows:    flows,
		mailbox:  mailbox,
		limiter:  limiter,
		resolver: resolver,
		config:   cfg,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

func (u *recoveryUsecase) transition(flow *entity.RecoveryFlow, state entity.FlowState) {
	flow.State = state
	flow.UpdatedAt = u.now()
	if u.metrics != nil {
		u.metrics.FlowTransition(string(state))
	}
}

func (u *recoveryUsecase) Start(ctx context.Context, params LinkParams) (*StartResult, error) {
	d := DispatchLink(params, FlowTypePolicy{
		Allowed: u.config.Recovery.AllowedFlowTypes,
		Lenient: u.config.Recovery.LenientFlowType,
	})

	now := u.now()
	flow := &entity.RecoveryFlow{Message: d.Message, EnteredAt: now}

	switch d.State {
	case entity.StateEmailRequestForm:
		u.transition(flow, d.State)
		return &StartResult{Flow: flow}, nil

	case entity.StateInvalidLink:
		u.logger.Info("Recovery link rejected",
			zap.String("error_code", d.Request.ErrorCode),
			zap.String("flow_type", d.Request.FlowType),
		)
		return u.invalidLink(flow), nil
	}

	if d.FlowTypeMismatch {
		u.logger.Warn("Accepting recovery token with unexpected flow type",
			zap.String("flow_type", d.Request.FlowType),
		)
	}

	u.transition(flow, entity.StateAwaitingLinkValidation)

	session, via, err := u.bind(ctx, d.Request)
	if err != nil {
		u.logger.Warn("Recovery link could not be bound to a session", zap.Error(err))
		flow.Message = MessageInvalidLink
		return u.invalidLink(flow), nil
	}

	flow.ID = uuid.NewString()
	flow.UserID = session.UserID
	flow.Email = session.Email
	flow.Message = MessageResetReady
	flow.ExpiresAt = now.Add(u.config.Recovery.LinkTTL)
	flow.SubscriptionStatus = u.lookupSubscription(ctx, flow.ID, session)
	u.transition(flow, entity.StatePasswordResetForm)

	if err := u.flows.Save(ctx, flow, u.config.Recovery.FlowTTL); err != nil {
		return nil, fmt.Errorf("failed to save recovery flow: %w", err)
	}

	u.logger.Info("Recovery session bound",
		zap.String("flow_id", flow.ID),
		zap.String("user_id", flow.UserID),
		zap.String("via", via),
	)

	return &StartResult{Flow: flow, Session: session}, nil
}

func (u *recoveryUsecase) invalidLink(flow *entity.RecoveryFlow) *StartResult {
	u.transition(flow, entity.StateInvalidLink)
	return &StartResult{
		Flow:    flow,
		Actions: []string{entity.RouteForgotPassword, entity.RouteLogin},
	}
}

// bind tries the token pair first, then an already-bound session for the same token
func (u *recoveryUsecase) bind(ctx context.Context, req *entity.RecoveryRequest) (*entity.Session, string, error) {
	return firstSuccess(ctx,
		step[*entity.Session]{name: "set_session", run: func(ctx context.Context) (*entity.Session, error) {
			if req.RefreshToken == "" {
				return nil, errNotApplicable
			}
			return u.identity.SetSession(ctx, req.AccessToken, req.RefreshToken)
		}},
		step[*entity.Session]{name: "get_user", run: func(ctx context.Context) (*entity.Session, error) {
			return u.identity.GetUser(ctx, req.AccessToken)
		}},
	)
}

// lookupSubscription never fails the flow, a missing profile means no subscription
func (u *recoveryUsecase) lookupSubscription(ctx context.Context, flowID string, session *entity.Session) string {
	lookupCtx := ctx
	if timeout := u.config.Identity.ProfileTimeout; timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	profile, err := u.profiles.FindByUserID(lookupCtx, session)
	if err != nil {
		u.logger.Warn("Profile lookup failed, continuing without subscription status",
			zap.String("flow_id", flowID),
			zap.Error(err),
		)
		return ""
	}
	if profile == nil {
		return ""
	}
	return profile.SubscriptionStatus
}

func (u *recoveryUsecase) RequestLink(ctx context.Context, email, clientIP string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return entity.ErrInvalidEmail
	}

	for _, key := range []struct{ scope, value string }{
		{"ip", clientIP},
		{"email", strings.ToLower(email)},
	} {
		if key.value == "" {
			continue
		}
		res, err := u.limiter.Allow(ctx, key.scope+":"+key.value)
		if err != nil {
			// Limiter outages do not lock users out of recovery
			u.logger.Warn("Rate limiter unavailable", zap.String("scope", key.scope), zap.Error(err))
			continue
		}
		if !res.Allowed {
			if u.metrics != nil {
				u.metrics.RateLimited(key.scope)
			}
			u.logger.Info("Recovery email request rate limited",
				zap.String("scope", key.scope),
				zap.Duration("retry_after", res.RetryAfter),
			)
			return &entity.RateLimitError{RetryAfter: res.RetryAfter}
		}
	}

	redirectTo := u.config.App.PublicURL + u.config.Routes.ResetPassword
	if err := u.identity.RecoverPassword(ctx, email, redirectTo); err != nil {
		u.logger.Error("Failed to request recovery email", zap.Error(err))
		return err
	}

	u.logger.Info("Recovery email requested", zap.String("email", email))
	return nil
}

func (u *recoveryUsecase) ValidatePassword(pw, confirm string) *PasswordCheck {
	r := password.Validate(pw, confirm)
	return &PasswordCheck{
		Rules:     r,
		Strength:  r.Strength(),
		Failed:    r.Failed(),
		CanSubmit: r.Satisfied(),
	}
}

func (u *recoveryUsecase) Status(ctx context.Context, flowID string) (*FlowStatus, error) {
	flow, err := u.flows.Find(ctx, flowID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	timer := ExpiryTimer{ExpiresAt: flow.ExpiresAt}
	return &FlowStatus{
		Flow:             flow,
		RemainingSeconds: int64(timer.Remaining(now).Seconds()),
		Remaining:        timer.Format(now),
		CanSubmit:        flow.State == entity.StatePasswordResetForm,
	}, nil
}

func (u *recoveryUsecase) Commit(ctx context.Context, flowID, accessToken, pw, confirm string) (*CommitResult, error) {
	flow, err := u.flows.Find(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if flow.State != entity.StatePasswordResetForm {
		return nil, fmt.Errorf("flow is %s: %w", flow.State, entity.ErrFlowConflict)
	}

	if accessToken == "" {
		return nil, entity.ErrSessionRequired
	}
	if claims, err := identity.PeekClaims(accessToken); err == nil && claims.Subject != "" && flow.UserID != "" && claims.Subject != flow.UserID {
		u.logger.Warn("Commit token belongs to another user", zap.String("flow_id", flowID))
		return nil, fmt.Errorf("token subject does not match flow: %w", entity.ErrSessionRequired)
	}

	policy := password.Validate(pw, confirm)
	if !policy.Satisfied() {
		return nil, &entity.FlowError{
			Kind:    entity.KindPolicyViolation,
			Message: "A senha não atende a todos os requisitos.",
			Policy:  &policy,
		}
	}

	acquired, err := u.flows.Acquire(ctx, flowID, submitLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("submission already in progress: %w", entity.ErrFlowConflict)
	}

	u.transition(flow, entity.StateSubmitting)
	if err := u.flows.Save(ctx, flow, u.config.Recovery.FlowTTL); err != nil {
		u.release(ctx, flowID)
		return nil, fmt.Errorf("failed to save recovery flow: %w", err)
	}

	if err := u.identity.UpdatePassword(ctx, accessToken, pw); err != nil {
		msg := identity.ErrorMessage(err)
		u.logger.Warn("Password update rejected by provider",
			zap.String("flow_id", flowID),
			zap.Error(err),
		)

		flow.Message = msg
		u.transition(flow, entity.StatePasswordResetForm)
		if saveErr := u.flows.Save(context.WithoutCancel(ctx), flow, u.config.Recovery.FlowTTL); saveErr != nil {
			u.logger.Error("Failed to restore recovery flow", zap.String("flow_id", flowID), zap.Error(saveErr))
		}
		u.release(ctx, flowID)

		return nil, &entity.FlowError{Kind: entity.KindCommitError, Message: msg}
	}

	u.logger.Info("Password updated", zap.String("flow_id", flowID))

	resolution := u.resolver.Resolve(ctx, ResolveInput{
		FlowID:             flow.ID,
		UserID:             flow.UserID,
		Email:              flow.Email,
		Password:           pw,
		SubscriptionStatus: flow.SubscriptionStatus,
		RecoveryToken:      accessToken,
	})

	flow.Message = resolution.Message
	flow.Route = resolution.Route
	u.transition(flow, entity.StateSucceeded)

	// The lock stays held, Succeeded is final
	if err := u.flows.Save(context.WithoutCancel(ctx), flow, u.config.Recovery.FlowTTL); err != nil {
		u.logger.Error("Failed to save succeeded flow", zap.String("flow_id", flowID), zap.Error(err))
	}

	return &CommitResult{Flow: flow, Resolution: resolution}, nil
}

func (u *recoveryUsecase) release(ctx context.Context, flowID string) {
	if err := u.flows.Release(context.WithoutCancel(ctx), flowID); err != nil {
		u.logger.Error("Failed to release flow lock", zap.String("flow_id", flowID), zap.Error(err))
	}
}

func (u *recoveryUsecase) TakePrefill(ctx context.Context, slotID string) (string, error) {
	if slotID == "" {
		return "", entity.ErrMailboxEmpty
	}
	email, err := u.mailbox.TakeOnce(ctx, slotID)
	if err != nil {
		if !errors.Is(err, entity.ErrMailboxEmpty) {
			u.logger.Error("Failed to read login pre-fill", zap.Error(err))
		}
		return "", err
	}
	return email, nil
}
