package entity

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned in APIError.Code
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeLinkError       = "LINK_ERROR"
	CodePolicyViolation = "POLICY_VIOLATION"
	CodeCommitError     = "COMMIT_ERROR"
	CodeFlowNotFound    = "FLOW_NOT_FOUND"
	CodeFlowConflict    = "FLOW_CONFLICT"
	CodeSessionRequired = "SESSION_REQUIRED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeMailboxEmpty    = "MAILBOX_EMPTY"
	CodeProviderError   = "PROVIDER_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code string, message string) *APIResponse {
	return &APIResponse{
		Success: false,
		Message: message,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}
}

// WithData attaches a payload to an error response, e.g. the per-rule policy result
func (r *APIResponse) WithData(data interface{}) *APIResponse {
	r.Data = data
	return r
}
