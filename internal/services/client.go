package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/shared"
)

type refreshRequest struct {
	Username string `json:"username"`
}

// AuthenticatedClient sends requests that need a session and recovers from an expired one.
type AuthenticatedClient struct {
	api     Doer
	session models.SessionStore
	logger  *log.Logger
}

// NewAuthenticatedClient wraps api with refresh-then-retry handling backed by session.
func NewAuthenticatedClient(api Doer, session models.SessionStore, logger *log.Logger) *AuthenticatedClient {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthenticatedClient{api: api, session: session, logger: logger}
}

// Send issues req. On a 403 it refreshes the session once and replays req once.
func (c *AuthenticatedClient) Send(ctx context.Context, req *Request) (*APIResponse, error) {
	if req.RequestID == "" {
		withID := *req
		withID.RequestID = shared.GenerateID()
		req = &withID
	}
	logger := c.logger.With("request_id", req.RequestID, "method", req.Method, "path", req.Path)

	resp, err := c.send(ctx, req)
	if !IsAuthExpired(err) {
		return resp, err
	}

	logger.Debug("request rejected, refreshing session")
	if rerr := c.refreshOrClear(ctx, req.RequestID, logger); rerr != nil {
		return nil, err
	}

	logger.Debug("session refreshed, retrying request")
	resp, err = c.send(ctx, req)
	if IsAuthExpired(err) {
		logger.Error("request rejected after refresh", "error", err)
		return nil, fmt.Errorf("%w: rejected after session refresh: %w", shared.ErrUnexpected, err)
	}
	return resp, err
}

// Refresh exchanges the refresh cookie for a new access cookie. A failed refresh clears the stored session.
//
// Callers that talk to the backend outside [AuthenticatedClient.Send], such as the task event stream, use
// it to recover from a 403.
func (c *AuthenticatedClient) Refresh(ctx context.Context) error {
	requestID := shared.GenerateID()
	logger := c.logger.With("request_id", requestID, "method", http.MethodPost, "path", RefreshPath)
	return c.refreshOrClear(ctx, requestID, logger)
}

func (c *AuthenticatedClient) refreshOrClear(ctx context.Context, requestID string, logger *log.Logger) error {
	err := c.refresh(ctx, requestID)
	if err == nil {
		return nil
	}
	logger.Warn("session refresh failed", "error", err)
	if cerr := c.session.Clear(); cerr != nil {
		logger.Error("failed to clear session", "error", cerr)
	}
	return err
}

func (c *AuthenticatedClient) send(ctx context.Context, req *Request) (*APIResponse, error) {
	resp, err := c.api.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(req); err != nil {
		return nil, err
	}
	return resp, nil
}

// refresh re-reads the identity so a login that happened while the request was in flight is honored.
func (c *AuthenticatedClient) refresh(ctx context.Context, requestID string) error {
	identity, err := c.session.Get()
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	req, err := NewJSONRequest(http.MethodPost, RefreshPath, refreshRequest{Username: identity})
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	req.RequestID = requestID

	resp, err := c.api.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if err := resp.Err(req); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return nil
}

// IsAuthExpired reports whether err is a 403 from the backend that has not been escalated.
func IsAuthExpired(err error) bool {
	if err == nil || errors.Is(err, shared.ErrUnexpected) {
		return false
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}
