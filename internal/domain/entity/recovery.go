package entity

import "time"

// FlowState is the single active state of a password recovery flow
type FlowState string

const (
	StateAwaitingLinkValidation FlowState = "awaiting_link_validation"
	StateEmailRequestForm       FlowState = "email_request_form"
	StatePasswordResetForm      FlowState = "password_reset_form"
	StateInvalidLink            FlowState = "invalid_link"
	StateSubmitting             FlowState = "submitting"
	StateSucceeded              FlowState = "succeeded"
	StateFailed                 FlowState = "failed"
)

// SubscriptionActive is the profile status that routes to the subscriber dashboard
const SubscriptionActive = "ativo"

// RecoveryRequest is parsed once from the arrival URL and never modified
type RecoveryRequest struct {
	AccessToken      string
	RefreshToken     string
	FlowType         string
	ErrorCode        string
	ErrorDescription string
}

// Session is the capability handed back by the identity provider.
// It is returned to the caller and never written to a store.
type Session struct {
	UserID       string `json:"-"`
	Email        string `json:"-"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// UserProfile is the best-effort side record used only for routing
type UserProfile struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	SubscriptionStatus string `json:"subscription_status"`
}

// HasActiveSubscription treats a missing profile as "no subscription"
func (p *UserProfile) HasActiveSubscription() bool {
	return p != nil && p.SubscriptionStatus == SubscriptionActive
}

// RecoveryFlow is the persisted state of one recovery attempt. It holds no tokens.
type RecoveryFlow struct {
	ID                 string    `json:"id"`
	State              FlowState `json:"state"`
	Message            string    `json:"message,omitempty"`
	UserID             string    `json:"user_id,omitempty"`
	Email              string    `json:"email,omitempty"`
	SubscriptionStatus string    `json:"subscription_status,omitempty"`
	Route              string    `json:"route,omitempty"`
	EnteredAt          time.Time `json:"entered_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Resolution is the outcome of the post-reset session resolver
type Resolution struct {
	Tier        string   `json:"tier"`
	Message     string   `json:"message"`
	RouteName   string   `json:"route_name"`
	Route       string   `json:"route"`
	PrefillSlot string   `json:"-"`
	Session     *Session `json:"session,omitempty"`
}

// Route names used in resolutions and dashboard redirects
const (
	RouteLogin               = "login"
	RouteSubscriberDashboard = "subscriber_dashboard"
	RouteCreatorDashboard    = "creator_dashboard"
	RouteAdminDashboard      = "admin_dashboard"
	RoutePricing             = "pricing"
	RouteForgotPassword      = "forgot_password"
)
