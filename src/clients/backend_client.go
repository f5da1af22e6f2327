package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/models"
	"buildhub-client/src/internal/session"
)

// BackendClient handles communication with the BuildHub backend. Only the
// session boundary lives here: authentication flows and push-token
// registration. Project, task, inventory and payment endpoints are separate
// feature clients.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// AuthResult is the outcome of a successful login or OTP verification.
type AuthResult struct {
	Token string        `json:"token"`
	User  *session.User `json:"user"`
}

// NewBackendClient creates a new backend client.
func NewBackendClient(cfg *config.Configuration) *BackendClient {
	return &BackendClient{
		baseURL: cfg.Backend.URL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Backend.Timeout) * time.Second,
		},
	}
}

// Login exchanges credentials for a token and profile. The caller feeds the
// result into the session store's Login operation; a failed call must never
// reach the store.
func (c *BackendClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}

	var response struct {
		Token   string        `json:"token"`
		User    *session.User `json:"user"`
		Status  string        `json:"status"`
		Message string        `json:"message"`
	}

	status, err := c.post(ctx, "/api/v1/auth/login", body, "", &response)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, models.ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend returned status: %d", status)
	}

	return &AuthResult{Token: response.Token, User: response.User}, nil
}

// VerifyOTP confirms the code sent to a registering account.
func (c *BackendClient) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	body := map[string]string{"email": email, "code": code}

	var response struct {
		Token   string        `json:"token"`
		User    *session.User `json:"user"`
		Status  string        `json:"status"`
		Message string        `json:"message"`
	}

	status, err := c.post(ctx, "/api/v1/auth/verify-otp", body, "", &response)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return nil, models.ErrInvalidOTP
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend returned status: %d", status)
	}

	return &AuthResult{Token: response.Token, User: response.User}, nil
}

// ResendOTP requests a fresh verification code.
func (c *BackendClient) ResendOTP(ctx context.Context, email string) error {
	return c.postStatus(ctx, "/api/v1/auth/resend-otp", map[string]string{"email": email})
}

// ForgotPassword starts the password reset flow.
func (c *BackendClient) ForgotPassword(ctx context.Context, email string) error {
	return c.postStatus(ctx, "/api/v1/auth/forgot-password", map[string]string{"email": email})
}

// ResetPassword completes the password reset flow.
func (c *BackendClient) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	body := map[string]string{"email": email, "code": code, "password": newPassword}
	return c.postStatus(ctx, "/api/v1/auth/reset-password", body)
}

// RegisterPushToken registers the device push token for the session. A
// failure here is non-fatal to the caller; the user stays fully functional
// without push notifications.
func (c *BackendClient) RegisterPushToken(ctx context.Context, deviceToken, sessionToken string) error {
	body := map[string]string{
		"deviceToken":  deviceToken,
		"sessionToken": sessionToken,
	}

	status, err := c.post(ctx, "/api/v1/notifications/register", body, sessionToken, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("%w: status %d", models.ErrRegistrationFailed, status)
	}
	return nil
}

func (c *BackendClient) postStatus(ctx context.Context, path string, body any) error {
	status, err := c.post(ctx, path, body, "", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("backend returned status: %d", status)
	}
	return nil
}

func (c *BackendClient) post(ctx context.Context, path string, body any, token string, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
