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

// Bodies the backend sends with 400 responses.
const (
	invalidURLBody       = "Invalid URL"
	finalStateBody       = "task already in final state"
	interruptAlreadyBody = "interrupt already sent"
)

type addTaskRequest struct {
	Link string `json:"link"`
}

// ScrapeService manages crawl tasks. Every call requires a session.
type ScrapeService struct {
	client Sender
	logger *log.Logger
}

// NewScrapeService creates a scrape service that sends through client.
func NewScrapeService(client Sender, logger *log.Logger) *ScrapeService {
	if logger == nil {
		logger = log.Default()
	}
	return &ScrapeService{client: client, logger: logger}
}

// AddTask submits link for crawling and returns the new task's id.
func (s *ScrapeService) AddTask(ctx context.Context, link string) (int, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return 0, fmt.Errorf("%w: link", shared.ErrMissingArgument)
	}

	req, err := NewJSONRequest(http.MethodPost, AddTaskPath, addTaskRequest{Link: link})
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Send(ctx, req)
	if err != nil {
		if hasBody(err, http.StatusBadRequest, invalidURLBody) {
			return 0, fmt.Errorf("%w: %w", shared.ErrInvalidURL, err)
		}
		return 0, err
	}

	var added models.AddTaskResponse
	if err := resp.Decode(&added); err != nil {
		return 0, err
	}
	s.logger.Debug("task added", "task", added.ID, "link", link)
	return added.ID, nil
}

// ListTasks returns every task owned by the session's user.
func (s *ScrapeService) ListTasks(ctx context.Context) ([]models.TaskSummary, error) {
	resp, err := s.client.Send(ctx, &Request{Method: http.MethodGet, Path: TasksPath})
	if err != nil {
		return nil, err
	}

	var tasks []models.TaskSummary
	if err := resp.Decode(&tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// InterruptTask asks the backend to stop task id without checking its status first.
func (s *ScrapeService) InterruptTask(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", shared.ErrInvalidTaskID, id)
	}

	_, err := s.client.Send(ctx, &Request{Method: http.MethodPost, Path: InterruptPath(id)})
	switch {
	case err == nil:
		s.logger.Info("interrupt sent", "task", id)
		return nil
	case hasBody(err, http.StatusBadRequest, finalStateBody):
		return fmt.Errorf("%w: %w", shared.ErrTaskInFinalState, err)
	case hasBody(err, http.StatusBadRequest, interruptAlreadyBody):
		return fmt.Errorf("%w: %w", shared.ErrInterruptAlreadySent, err)
	default:
		return err
	}
}

// Interrupt stops task id when its last known status allows it.
func (s *ScrapeService) Interrupt(ctx context.Context, id int, current models.TaskStatus) error {
	switch {
	case current == models.StatusInterrupting:
		return shared.ErrInterruptAlreadySent
	case models.IsTerminal(current):
		return shared.ErrTaskInFinalState
	}
	return s.InterruptTask(ctx, id)
}

func hasBody(err error, status int, body string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status && strings.EqualFold(apiErr.Body, body)
}
