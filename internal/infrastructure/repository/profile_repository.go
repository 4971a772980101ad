package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/httpclient"
)

const profileColumns = "id,email,subscription_status"

type profileRepository struct {
	client httpclient.HTTPClient
	table  string
	cache  *ttlcache.Cache[string, *entity.UserProfile]
	logger *zap.Logger
}

func NewProfileRepository(lc fx.Lifecycle, cfg *config.Config, client httpclient.HTTPClient, logger *zap.Logger) repository.ProfileRepository {
	r := newProfileRepository(cfg, client, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go r.cache.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.cache.Stop()
			return nil
		},
	})

	return r
}

func newProfileRepository(cfg *config.Config, client httpclient.HTTPClient, logger *zap.Logger) *profileRepository {
	ttl := cfg.Identity.ProfileCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	table := cfg.Identity.ProfileTable
	if table == "" {
		table = "profiles"
	}

	return &profileRepository{
		client: client,
		table:  table,
		cache: ttlcache.New[string, *entity.UserProfile](
			ttlcache.WithTTL[string, *entity.UserProfile](ttl),
			ttlcache.WithDisableTouchOnHit[string, *entity.UserProfile](),
		),
		logger: logger,
	}
}

func (r *profileRepository) FindByUserID(ctx context.Context, session *entity.Session) (*entity.UserProfile, error) {
	if session == nil || session.UserID == "" {
		return nil, nil
	}

	if item := r.cache.Get(session.UserID); item != nil {
		r.logger.Debug("Profile found in cache", zap.String("user_id", session.UserID))
		return item.Value(), nil
	}

	params := url.Values{}
	params.Set("id", "eq."+session.UserID)
	params.Set("select", profileColumns)
	path := fmt.Sprintf("/rest/v1/%s?%s", r.table, params.Encode())

	var rows []entity.UserProfile
	reqCtx := &httpclient.RequestContext{AccessToken: session.AccessToken, Email: session.Email}
	if err := r.client.Get(ctx, reqCtx, path, &rows); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	profile := &rows[0]
	r.cache.Set(session.UserID, profile, ttlcache.DefaultTTL)

	return profile, nil
}
