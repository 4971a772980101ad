package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/infrastructure/httpclient"
)

const (
	userPath     = "/auth/v1/user"
	tokenPath    = "/auth/v1/token"
	logoutPath   = "/auth/v1/logout"
	recoverPath  = "/auth/v1/recover"
	refreshGrant = "refresh_token"
	passwordType = "password"
)

var ErrMissingToken = errors.New("access token is required")

// sessionResponse is the token grant payload
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         user   `json:"user"`
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider is the identity provider boundary consumed by the recovery flow
type Provider interface {
	// SetSession establishes a session from a recovery token pair, refreshing
	// the access token when it has already expired
	SetSession(ctx context.Context, accessToken, refreshToken string) (*entity.Session, error)

	// GetUser returns the session already bound to an access token
	GetUser(ctx context.Context, accessToken string) (*entity.Session, error)

	// UpdatePassword sets a new password for the session's user
	UpdatePassword(ctx context.Context, accessToken, password string) error

	// SignInWithPassword opens a fresh session
	SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error)

	// SignOut revokes the session behind an access token
	SignOut(ctx context.Context, accessToken string) error

	// RecoverPassword asks the provider to email a recovery link
	RecoverPassword(ctx context.Context, email, redirectTo string) error
}

type provider struct {
	client httpclient.HTTPClient
	logger *zap.Logger
	now    func() time.Time
}

func NewProvider(client httpclient.HTTPClient, logger *zap.Logger) Provider {
	return &provider{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// TokenClaims is what can be read from an access token without verifying it.
// Only used for logging and to decide whether a refresh is needed; the provider
// remains the authority on validity.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// PeekClaims decodes the token payload without signature verification
func PeekClaims(token string) (*TokenClaims, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}

	out := &TokenClaims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (p *provider) SetSession(ctx context.Context, accessToken, refreshToken string) (*entity.Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, fmt.Errorf("both tokens are required to set a session: %w", ErrMissingToken)
	}

	claims, err := PeekClaims(accessToken)
	if err != nil {
		p.logger.Warn("Access token is not a readable JWT, asking the provider",
			zap.Error(err),
		)
	}

	if claims != nil && !claims.ExpiresAt.IsZero() && !claims.ExpiresAt.After(p.now()) {
		p.logger.Info("Recovery access token expired, refreshing",
			zap.String("subject", claims.Subject),
			zap.Time("expired_at", claims.ExpiresAt),
		)
		return p.refresh(ctx, refreshToken)
	}

	session, err := p.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	session.RefreshToken = refreshToken
	return session, nil
}

func (p *provider) refresh(ctx context.Context, refreshToken string) (*entity.Session, error) {
	var resp sessionResponse
	path := tokenPath + "?grant_type=" + refreshGrant
	body := map[string]string{"refresh_token": refreshToken}
	if err := p.client.Post(ctx, nil, path, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return resp.toSession(), nil
}

func (p *provider) GetUser(ctx context.Context, accessToken string) (*entity.Session, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	var u user
	if err := p.client.Get(ctx, &httpclient.RequestContext{AccessToken: accessToken}, userPath, &u); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &entity.Session{
		UserID:      u.ID,
		Email:       u.Email,
		AccessToken: accessToken,
	}, nil
}

func (p *provider) UpdatePassword(ctx context.Context, accessToken, password string) error {
	if accessToken == "" {
		return ErrMissingToken
	}

	reqCtx := &httpclient.RequestContext{AccessToken: accessToken}
	if err := p.client.Put(ctx, reqCtx, userPath, map[string]string{"password": password}, nil); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (p *provider) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	var resp sessionResponse
	path := tokenPath + "?grant_type=" + passwordType
	body := map[string]string{"email": email, "password": password}
	if err := p.client.Post(ctx, &httpclient.RequestContext{Email: email}, path, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return resp.toSession(), nil
}

func (p *provider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrMissingToken
	}
	if err := p.client.Post(ctx, &httpclient.RequestContext{AccessToken: accessToken}, logoutPath, nil, nil); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (p *provider) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	path := recoverPath
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	if err := p.client.Post(ctx, &httpclient.RequestContext{Email: email}, path, map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("failed to request recovery email: %w", err)
	}
	return nil
}

func (r *sessionResponse) toSession() *entity.Session {
	return &entity.Session{
		UserID:       r.User.ID,
		Email:        r.User.Email,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
}

// ErrorMessage returns the provider's user-displayable text for err
func ErrorMessage(err error) string {
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
