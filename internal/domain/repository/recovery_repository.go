package repository

import (
	"context"
	"time"

	"xnema-web/internal/domain/entity"
)

type FlowRepository interface {
	// Save stores the flow record, replacing any previous version
	Save(ctx context.Context, flow *entity.RecoveryFlow, ttl time.Duration) error

	// Find returns entity.ErrFlowNotFound when the id is unknown or expired
	Find(ctx context.Context, id string) (*entity.RecoveryFlow, error)

	// Acquire takes the single-submission lock for a flow, false if already held
	Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// Release drops the submission lock so the user can retry
	Release(ctx context.Context, id string) error
}

// Mailbox is one-shot storage for the email carried to the login page
type Mailbox interface {
	// Put stores the email and returns the slot id that reads it back
	Put(ctx context.Context, email string) (string, error)

	// TakeOnce returns the email and deletes it; a second call returns entity.ErrMailboxEmpty
	TakeOnce(ctx context.Context, slotID string) (string, error)
}

type ProfileRepository interface {
	// FindByUserID returns nil without error when the user has no profile row
	FindByUserID(ctx context.Context, session *entity.Session) (*entity.UserProfile, error)
}

type APILogRepository interface {
	Save(ctx context.Context, log *entity.APILog) error
	FindAll(ctx context.Context, limit int) ([]entity.APILog, error)
	FindByEmail(ctx context.Context, email string, limit int) ([]entity.APILog, error)
}
