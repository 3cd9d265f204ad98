package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/scrapectl/internal/services"
	"github.com/desertthunder/scrapectl/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin logs in and stores the session identity and cookies locally.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	username := cmd.String("username")
	r.logger.Info("logging in", "username", username, "server", r.api.BaseURL())

	if err := r.auth.Login(ctx, username, cmd.String("password")); err != nil {
		return fmt.Errorf("%s: %w", services.LoginMessage(err), err)
	}

	return r.writePlain("✓ Logged in as %s\n", username)
}

// AuthLogout ends the backend session, then drops the stored identity and cookies.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	if err := r.auth.LogOut(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return r.writePlain("Not logged in\n")
		}
		return fmt.Errorf("logout failed: %w", err)
	}

	if r.jar != nil {
		if err := r.jar.Purge(); err != nil {
			r.logger.Warn("failed to purge cookies", "error", err)
		}
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports the locally stored session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	session, err := r.auth.Status()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	r.writePlain("Server: %s\n", r.api.BaseURL())
	if !session.IsAuthenticated() {
		return r.writePlain("Authentication: ✗ Not logged in\n")
	}
	return r.writePlain("Authentication: ✓ Logged in as %s\n", session.Identity)
}
