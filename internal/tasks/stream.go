package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/services"
	"github.com/desertthunder/scrapectl/internal/shared"
	sse "github.com/tmaxmax/go-sse"
	"golang.org/x/time/rate"
)

// StreamOptions controls how a [Stream] recovers from dropped connections.
type StreamOptions struct {
	RetryDelay    time.Duration // wait before reconnecting
	MaxReconnects int           // consecutive failed attempts tolerated before giving up
	ReconnectRate float64       // connection attempts per second, <= 0 for unlimited
}

// DefaultStreamOptions mirrors a browser EventSource: 3s between attempts.
func DefaultStreamOptions() StreamOptions {
	return StreamOptionsFromConfig(shared.DefaultConfig().Stream)
}

// StreamOptionsFromConfig converts the [stream] config section.
func StreamOptionsFromConfig(cfg shared.StreamConfig) StreamOptions {
	return StreamOptions{
		RetryDelay:    cfg.RetryDelay,
		MaxReconnects: cfg.MaxReconnects,
		ReconnectRate: cfg.ReconnectRate,
	}
}

// Refresher renews the session cookies the listen endpoint checks.
type Refresher interface {
	Refresh(ctx context.Context) error
}

var (
	// errBadResponse marks responses an EventSource treats as fatal.
	errBadResponse = errors.New("not an event stream")
	errAuthExpired = errors.New("listen rejected")
)

// Stream reads task snapshots from the backend's listen endpoint.
//
// Dropped connections are retried after RetryDelay with the last seen event id. A response that is not a 200
// text/event-stream, or more than MaxReconnects failed attempts in a row, closes the stream for good.
// A 403 is answered with one session refresh and one reconnect before it counts as fatal.
type Stream struct {
	baseURL   string
	client    *http.Client
	refresher Refresher
	opts      StreamOptions
	logger    *log.Logger
}

// NewStream creates a stream reader. client should share the cookie jar used by refresher so a renewed
// access cookie reaches the next connection. A nil refresher makes a 403 fatal.
func NewStream(baseURL string, client *http.Client, refresher Refresher, opts StreamOptions, logger *log.Logger) *Stream {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxReconnects < 0 {
		opts.MaxReconnects = 0
	}
	return &Stream{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		refresher: refresher,
		opts:      opts,
		logger:    logger,
	}
}

type streamState struct {
	lastEventID string
	terminal    bool
	received    bool
}

// Run reads task taskID's snapshots and passes each to emit until one of:
//   - ctx is done or emit returns false (returns nil)
//   - the server ends the stream after a terminal snapshot (returns nil)
//   - the stream closes for good (returns an error wrapping [shared.ErrStreamClosed])
func (s *Stream) Run(ctx context.Context, taskID int, emit func(models.TaskSnapshot) bool) error {
	limit := rate.Inf
	if s.opts.ReconnectRate > 0 {
		limit = rate.Limit(s.opts.ReconnectRate)
	}
	limiter := rate.NewLimiter(limit, 1)
	logger := s.logger.With("task", taskID)

	var state streamState
	failures, refreshed := 0, false
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		state.received = false
		stopped, err := s.connect(ctx, taskID, &state, emit, logger)
		if state.received {
			failures, refreshed = 0, false
		}

		switch {
		case ctx.Err() != nil || stopped:
			return nil
		case errors.Is(err, errAuthExpired) && s.refresher != nil && !refreshed:
			refreshed = true
			logger.Debug("event stream rejected, refreshing session")
			if rerr := s.refresher.Refresh(ctx); rerr != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("session refresh failed, closing event stream", "error", rerr)
				return fmt.Errorf("%w: task %d: %w: %w", shared.ErrStreamClosed, taskID, err, rerr)
			}
			continue
		case errors.Is(err, errBadResponse), errors.Is(err, errAuthExpired):
			logger.Error("event stream rejected", "error", err)
			return fmt.Errorf("%w: task %d: %w", shared.ErrStreamClosed, taskID, err)
		}

		failures++
		if failures > s.opts.MaxReconnects {
			logger.Error("event stream gave up", "attempts", failures, "error", err)
			return fmt.Errorf("%w: task %d: %d failed attempts: %w", shared.ErrStreamClosed, taskID, failures, err)
		}

		logger.Warn("event stream interrupted, reconnecting", "error", err, "attempt", failures, "delay", s.opts.RetryDelay)
		timer := time.NewTimer(s.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// connect runs one connection. stopped is true when the stream ended normally or emit asked to stop.
func (s *Stream) connect(
	ctx context.Context,
	taskID int,
	state *streamState,
	emit func(models.TaskSnapshot) bool,
	logger *log.Logger,
) (stopped bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+services.ListenPath(taskID), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errBadResponse, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if state.lastEventID != "" {
		req.Header.Set("Last-Event-ID", state.lastEventID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return false, fmt.Errorf("%w: status %d", errAuthExpired, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", errBadResponse, resp.StatusCode)
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/event-stream" {
		return false, fmt.Errorf("%w: content type %q", errBadResponse, resp.Header.Get("Content-Type"))
	}
	logger.Debug("event stream connected", "last_event_id", state.lastEventID)

	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			return false, err
		}
		if ev.LastEventID != "" {
			state.lastEventID = ev.LastEventID
		}
		if ev.Type != "" && ev.Type != "message" {
			continue
		}

		snap, err := models.DecodeSnapshot([]byte(ev.Data))
		if err != nil {
			logger.Warn("skipping malformed event", "error", err)
			continue
		}
		state.received = true
		state.terminal = models.IsTerminal(snap.Status)
		if !emit(snap) {
			return true, nil
		}
	}

	if state.terminal {
		logger.Debug("event stream finished", "status", "terminal")
		return true, nil
	}
	return false, io.ErrUnexpectedEOF
}
