package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/entity"
	"xnema-web/internal/infrastructure/metrics"
)

const (
	maxBodyLogLength = 500 // Maximum characters to log for body
	maxBodyStoreSize = 10000
)

// RequestContext carries per-request credentials
type RequestContext struct {
	AccessToken string // Bearer for user-scoped calls, the anon key is used when empty
	Email       string // Attribution for the API log only
}

type HTTPClient interface {
	Get(ctx context.Context, reqCtx *RequestContext, path string, result interface{}) error
	Post(ctx context.Context, reqCtx *RequestContext, path string, body interface{}, result interface{}) error
	Put(ctx context.Context, reqCtx *RequestContext, path string, body interface{}, result interface{}) error
}

// APILogSaver interface for saving API logs
type APILogSaver interface {
	Save(ctx context.Context, log *entity.APILog) error
}

// APIError is a non-2xx answer from the provider. Message is the provider's own
// text and is safe to show to the user verbatim.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.StatusCode, e.Message)
}

type httpClient struct {
	client      *http.Client
	baseURL     string
	anonKey     string
	apiLogSaver APILogSaver
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewHTTPClient(cfg *config.Config, apiLogSaver APILogSaver, m *metrics.Metrics, logger *zap.Logger) HTTPClient {
	logger.Info("HTTP Client initialized for identity provider",
		zap.String("base_url", cfg.Identity.BaseURL),
	)

	return &httpClient{
		client: &http.Client{
			Timeout: cfg.Identity.Timeout,
		},
		baseURL:     cfg.Identity.BaseURL,
		anonKey:     cfg.Identity.AnonKey,
		apiLogSaver: apiLogSaver,
		metrics:     m,
		logger:      logger,
	}
}

var secretFieldPattern = regexp.MustCompile(`"(password|access_token|refresh_token|provider_token)"\s*:\s*"(?:[^"\\]|\\.)*"`)

// redactSecrets masks credentials in a JSON body before it is logged or stored
func redactSecrets(body string) string {
	return secretFieldPattern.ReplaceAllString(body, `"$1":"[REDACTED]"`)
}

// truncateString truncates a string if it exceeds maxLength
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + fmt.Sprintf("... [truncated, total %d chars]", len(s))
}

// formatHeadersForLog formats HTTP headers for logging, hiding credentials
func formatHeadersForLog(headers http.Header) string {
	var sb strings.Builder
	for key, values := range headers {
		for _, value := range values {
			switch http.CanonicalHeaderKey(key) {
			case "Authorization", "Apikey":
				value = "[REDACTED]"
			}
			if len(value) > 100 {
				value = value[:100] + "..."
			}
			sb.WriteString(fmt.Sprintf("Header %s=%s\n", key, value))
		}
	}
	return sb.String()
}

func (c *httpClient) logRequest(method, url string, headers http.Header, body []byte) {
	var logBuilder strings.Builder

	logBuilder.WriteString("\n>>> [IDENTITY-REQ]\n")
	logBuilder.WriteString(fmt.Sprintf("Method: %s\n", method))
	logBuilder.WriteString(fmt.Sprintf("URL: %s\n", url))
	logBuilder.WriteString(formatHeadersForLog(headers))

	if len(body) > 0 {
		bodyStr := truncateString(redactSecrets(string(body)), maxBodyLogLength)
		logBuilder.WriteString(fmt.Sprintf("REQUEST BODY: %s\n", bodyStr))
	}

	c.logger.Debug(logBuilder.String())
}

func (c *httpClient) logResponse(statusCode int, statusText string, duration time.Duration, body []byte) {
	var logBuilder strings.Builder

	logBuilder.WriteString("\n>>> [IDENTITY-RESPONSE]\n")
	logBuilder.WriteString(fmt.Sprintf("Status: %d %s\n", statusCode, statusText))
	logBuilder.WriteString(fmt.Sprintf("Duration: %s\n", duration))

	bodyStr := truncateString(redactSecrets(string(body)), maxBodyLogLength)
	logBuilder.WriteString(fmt.Sprintf("Body: %s\n", bodyStr))

	c.logger.Debug(logBuilder.String())
}

// saveAPILog persists the call asynchronously so it never delays the flow
func (c *httpClient) saveAPILog(method, endpoint string, requestBody []byte, responseBody []byte, statusCode int, duration time.Duration, email string) {
	if c.apiLogSaver == nil {
		return
	}

	apiLog := &entity.APILog{
		Endpoint:     endpoint,
		Method:       method,
		RequestBody:  truncateString(redactSecrets(string(requestBody)), maxBodyStoreSize),
		ResponseBody: truncateString(redactSecrets(string(responseBody)), maxBodyStoreSize),
		StatusCode:   statusCode,
		Duration:     duration.Milliseconds(),
		Email:        email,
		CreatedAt:    time.Now(),
	}

	go func() {
		if err := c.apiLogSaver.Save(context.Background(), apiLog); err != nil {
			c.logger.Warn("Failed to save API log to database",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
		}
	}()
}

func (c *httpClient) setAuthHeaders(req *http.Request, reqCtx *RequestContext) {
	req.Header.Set("apikey", c.anonKey)

	bearer := c.anonKey
	if reqCtx != nil && reqCtx.AccessToken != "" {
		bearer = reqCtx.AccessToken
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

// parseAPIError extracts the provider's message from the error payload shapes
// used by the auth API (msg, error_description) and the data API (message).
func parseAPIError(statusCode int, body []byte) *APIError {
	var payload struct {
		Code             interface{} `json:"code"`
		ErrorCode        string      `json:"error_code"`
		Error            string      `json:"error"`
		ErrorDescription string      `json:"error_description"`
		Msg              string      `json:"msg"`
		Message          string      `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &APIError{StatusCode: statusCode}

	switch {
	case payload.ErrorCode != "":
		apiErr.Code = payload.ErrorCode
	case payload.Error != "":
		apiErr.Code = payload.Error
	case payload.Code != nil:
		apiErr.Code = fmt.Sprint(payload.Code)
	}

	switch {
	case payload.Msg != "":
		apiErr.Message = payload.Msg
	case payload.ErrorDescription != "":
		apiErr.Message = payload.ErrorDescription
	case payload.Message != "":
		apiErr.Message = payload.Message
	case payload.Error != "":
		apiErr.Message = payload.Error
	default:
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	return apiErr
}

func (c *httpClient) doRequest(ctx context.Context, reqCtx *RequestContext, method, path string, body interface{}, result interface{}) error {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.setAuthHeaders(req, reqCtx)

	c.logRequest(method, fullURL, req.Header, jsonBody)

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(startTime)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logResponse(resp.StatusCode, resp.Status, duration, respBody)

	metricPath := path
	if i := strings.IndexByte(metricPath, '?'); i >= 0 {
		metricPath = metricPath[:i]
	}
	if c.metrics != nil {
		c.metrics.ProviderCall(method, metricPath, resp.StatusCode, duration)
	}

	email := ""
	if reqCtx != nil {
		email = reqCtx.Email
	}
	c.saveAPILog(method, fullURL, jsonBody, respBody, resp.StatusCode, duration, email)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *httpClient) Get(ctx context.Context, reqCtx *RequestContext, path string, result interface{}) error {
	return c.doRequest(ctx, reqCtx, http.MethodGet, path, nil, result)
}

func (c *httpClient) Post(ctx context.Context, reqCtx *RequestContext, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, reqCtx, http.MethodPost, path, body, result)
}

func (c *httpClient) Put(ctx context.Context, reqCtx *RequestContext, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, reqCtx, http.MethodPut, path, body, result)
}
