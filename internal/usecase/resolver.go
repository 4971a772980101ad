package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/identity"
	"xnema-web/internal/infrastructure/metrics"
)

// Resolution tiers
const (
	TierNoEmail     = "no_email"
	TierAutoLogin   = "auto_login"
	TierManualLogin = "manual_login"
)

const (
	MessagePasswordChanged = "Senha redefinida com sucesso. Faça login com sua nova senha."
	MessageAutoLoggedIn    = "Senha redefinida com sucesso. Você já está conectado."
	MessageManualLogin     = "Senha redefinida com sucesso. Entre com seu e-mail e a nova senha para continuar."
)

// ResolveInput is what the resolver needs from a committed flow
type ResolveInput struct {
	FlowID             string
	UserID             string
	Email              string
	Password           string
	SubscriptionStatus string
	RecoveryToken      string
}

// Resolver leaves the user signed in and routed after a password change.
// Its tiers never report failure to the caller.
type Resolver struct {
	identity identity.Provider
	profiles repository.ProfileRepository
	mailbox  repository.Mailbox
	routes   config.RoutesConfig
	delay    time.Duration
	lookup   time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewResolver(
	cfg *config.Config,
	provider identity.Provider,
	profiles repository.ProfileRepository,
	mailbox repository.Mailbox,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		identity: provider,
		profiles: profiles,
		mailbox:  mailbox,
		routes:   cfg.Routes,
		delay:    cfg.Recovery.PropagationDelay,
		lookup:   cfg.Identity.ProfileTimeout,
		metrics:  m,
		logger:   logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) *entity.Resolution {
	res, tier, err := firstSuccess(ctx,
		step[*entity.Resolution]{name: TierNoEmail, run: func(ctx context.Context) (*entity.Resolution, error) {
			return r.withoutEmail(in)
		}},
		step[*entity.Resolution]{name: TierAutoLogin, run: func(ctx context.Context) (*entity.Resolution, error) {
			return r.autoLogin(ctx, in)
		}},
		step[*entity.Resolution]{name: TierManualLogin, run: func(ctx context.Context) (*entity.Resolution, error) {
			return r.manualLogin(ctx, in), nil
		}},
	)
	if err != nil {
		// Only reachable when ctx was cancelled before the manual tier ran
		r.logger.Warn("Post-reset resolution interrupted",
			zap.String("flow_id", in.FlowID),
			zap.Error(err),
		)
		res, tier = r.loginResolution(TierManualLogin, MessagePasswordChanged), TierManualLogin
	}

	if r.metrics != nil {
		r.metrics.Resolution(tier)
	}
	r.logger.Info("Post-reset resolution",
		zap.String("flow_id", in.FlowID),
		zap.String("tier", tier),
		zap.String("route", res.Route),
	)
	return res
}

func (r *Resolver) withoutEmail(in ResolveInput) (*entity.Resolution, error) {
	if in.Email != "" {
		return nil, errNotApplicable
	}
	return r.loginResolution(TierNoEmail, MessagePasswordChanged), nil
}

func (r *Resolver) autoLogin(ctx context.Context, in ResolveInput) (*entity.Resolution, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	session, err := r.identity.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		r.logger.Info("Automatic login after reset failed, falling back to manual login",
			zap.String("flow_id", in.FlowID),
			zap.Error(err),
		)
		return nil, err
	}

	profile := &entity.UserProfile{ID: in.UserID, Email: in.Email, SubscriptionStatus: in.SubscriptionStatus}
	if profile.SubscriptionStatus == "" {
		profile = r.refreshProfile(ctx, in.FlowID, session)
	}

	res := &entity.Resolution{
		Tier:      TierAutoLogin,
		Message:   MessageAutoLoggedIn,
		RouteName: entity.RoutePricing,
		Route:     r.routes.Pricing,
		Session:   session,
	}
	if profile.HasActiveSubscription() {
		res.RouteName = entity.RouteSubscriberDashboard
		res.Route = r.routes.SubscriberDashboard
	}
	return res, nil
}

// refreshProfile retries the profile lookup with the new session when binding
// could not read it. A nil profile means no subscription.
func (r *Resolver) refreshProfile(ctx context.Context, flowID string, session *entity.Session) *entity.UserProfile {
	if r.profiles == nil {
		return nil
	}

	lookupCtx := ctx
	if r.lookup > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.lookup)
		defer cancel()
	}

	profile, err := r.profiles.FindByUserID(lookupCtx, session)
	if err != nil {
		r.logger.Warn("Profile lookup after login failed",
			zap.String("flow_id", flowID),
			zap.Error(err),
		)
		return nil
	}
	return profile
}

func (r *Resolver) manualLogin(ctx context.Context, in ResolveInput) *entity.Resolution {
	if in.RecoveryToken != "" {
		if err := r.identity.SignOut(ctx, in.RecoveryToken); err != nil {
			r.logger.Debug("Sign out of recovery session failed", zap.Error(err))
		}
	}

	res := r.loginResolution(TierManualLogin, MessageManualLogin)

	slot, err := r.mailbox.Put(ctx, in.Email)
	if err != nil {
		r.logger.Warn("Failed to store login pre-fill",
			zap.String("flow_id", in.FlowID),
			zap.Error(err),
		)
		return res
	}
	res.PrefillSlot = slot
	return res
}

func (r *Resolver) loginResolution(tier, message string) *entity.Resolution {
	return &entity.Resolution{
		Tier:      tier,
		Message:   message,
		RouteName: entity.RouteLogin,
		Route:     r.routes.Login,
	}
}
