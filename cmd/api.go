package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/scrapectl/internal/services"
	"github.com/desertthunder/scrapectl/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes an authenticated GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.client.Send(ctx, &services.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, cmd.Bool("pretty"))
}

// APIPost makes an authenticated POST request with a JSON body
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}

	data := cmd.String("data")
	if !json.Valid([]byte(data)) {
		return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.client.Send(ctx, &services.Request{Method: http.MethodPost, Path: path, Body: []byte(data)})
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	if len(resp.Body) == 0 {
		return r.writePlain("%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return r.writePlain("%s\n", resp.Body)
}

func apiPath(arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(arg, "/") {
		arg = "/" + arg
	}
	return arg, nil
}
