package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/shared"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type logOutRequest struct {
	Username string `json:"username"`
}

// AuthService logs the local user in and out of the backend.
type AuthService struct {
	api     Doer
	client  Sender
	session models.SessionStore
	logger  *log.Logger
}

// NewAuthService creates an auth service. Login goes through api, logout through client.
func NewAuthService(api Doer, client Sender, session models.SessionStore, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthService{api: api, client: client, session: session, logger: logger}
}

// Login exchanges credentials for session cookies and records username as the session identity.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", shared.ErrMissingArgument)
	}

	req, err := NewJSONRequest(http.MethodPost, LoginPath, loginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	req.RequestID = shared.GenerateID()

	resp, err := s.api.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if err := resp.Err(req); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %w", shared.ErrBadCredentials, err)
		}
		return err
	}

	if err := s.session.Set(username); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	s.logger.Info("logged in", "user", username, "request_id", req.RequestID)
	return nil
}

// LogOut ends the backend session and clears the local identity.
func (s *AuthService) LogOut(ctx context.Context) error {
	identity, err := s.session.Get()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if identity == "" {
		return shared.ErrNotAuthenticated
	}

	req, err := NewJSONRequest(http.MethodPost, LogOutPath, logOutRequest{Username: identity})
	if err != nil {
		return err
	}
	if _, err := s.client.Send(ctx, req); err != nil {
		return err
	}

	if err := s.session.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Info("logged out", "user", identity)
	return nil
}

// Status returns the locally known session.
func (s *AuthService) Status() (models.Session, error) {
	return models.LoadSession(s.session)
}
