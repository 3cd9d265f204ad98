package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/shared"
	tu "github.com/desertthunder/scrapectl/internal/testing"
)

func TestScrapeService(t *testing.T) {
	ctx := context.Background()

	t.Run("AddTask", func(t *testing.T) {
		t.Run("Returns New ID", func(t *testing.T) {
			backend, _, c := loggedIn(t)

			id, err := c.scrape.AddTask(ctx, "https://example.com")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			task, ok := backend.Task(id)
			if !ok || task.Status != models.StatusPending {
				t.Errorf("expected pending task %d, got %+v", id, task)
			}
		})

		t.Run("Invalid URL", func(t *testing.T) {
			_, _, c := loggedIn(t)

			_, err := c.scrape.AddTask(ctx, "not a url")
			if !errors.Is(err, shared.ErrInvalidURL) {
				t.Fatalf("expected ErrInvalidURL, got %v", err)
			}
			if msg := AddTaskMessage(err); msg != "Invalid link provided" {
				t.Errorf("expected 'Invalid link provided', got %q", msg)
			}
			if Classify(err) != KindValidation {
				t.Errorf("expected KindValidation, got %v", Classify(err))
			}
		})

		t.Run("Empty Link", func(t *testing.T) {
			_, _, c := loggedIn(t)

			if _, err := c.scrape.AddTask(ctx, "   "); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Server Error Message", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "something went wrong", http.StatusInternalServerError)
			}))
			defer server.Close()
			c := newTestClients(t, server.URL, tu.NewSessionStub("alice"))

			_, err := c.scrape.AddTask(ctx, "https://example.com")
			if msg := AddTaskMessage(err); msg != "Request failed: 500 - something went wrong" {
				t.Errorf("unexpected message %q", msg)
			}
		})
	})

	t.Run("ListTasks", func(t *testing.T) {
		backend, _, c := loggedIn(t)
		backend.PutTask(models.TaskSnapshot{Status: models.StatusFinished, Link: "https://a.example", PageTitle: tu.Ptr("A")})
		backend.PutTask(models.TaskSnapshot{Status: models.StatusTryingLinks, Link: "https://b.example", CrawledLinks: 3})

		tasks, err := c.scrape.ListTasks(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tasks) != 2 {
			t.Fatalf("expected 2 tasks, got %d", len(tasks))
		}
		if tasks[0].Status != models.StatusFinished || tasks[0].PageTitle == nil || *tasks[0].PageTitle != "A" {
			t.Errorf("unexpected first task %+v", tasks[0])
		}
		if tasks[1].CrawledLinks == nil || *tasks[1].CrawledLinks != 3 {
			t.Errorf("unexpected second task %+v", tasks[1])
		}
	})

	t.Run("Interrupt", func(t *testing.T) {
		tests := []struct {
			name    string
			status  models.TaskStatus
			wantErr error
			calls   int
		}{
			{"Pending", models.StatusPending, nil, 1},
			{"Initiating", models.StatusInitiating, nil, 1},
			{"Trying Links", models.StatusTryingLinks, nil, 1},
			{"Interrupting", models.StatusInterrupting, shared.ErrInterruptAlreadySent, 0},
			{"Finished", models.StatusFinished, shared.ErrTaskInFinalState, 0},
			{"Error", models.StatusError, shared.ErrTaskInFinalState, 0},
			{"Interrupted", models.StatusInterrupted, shared.ErrTaskInFinalState, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				backend, _, c := loggedIn(t)
				id := backend.PutTask(models.TaskSnapshot{Status: tt.status, Link: "https://example.com"})

				err := c.scrape.Interrupt(ctx, id, tt.status)
				if tt.wantErr == nil && err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if n := backend.Count(http.MethodPost, InterruptPath(id)); n != tt.calls {
					t.Errorf("expected %d interrupt requests, got %d", tt.calls, n)
				}
			})
		}

		t.Run("Stale Status Maps Backend Refusal", func(t *testing.T) {
			backend, _, c := loggedIn(t)
			id := backend.PutTask(models.TaskSnapshot{Status: models.StatusFinished, Link: "https://example.com"})

			err := c.scrape.Interrupt(ctx, id, models.StatusTryingLinks)
			if !errors.Is(err, shared.ErrTaskInFinalState) {
				t.Fatalf("expected ErrTaskInFinalState, got %v", err)
			}
			if msg := InterruptMessage(err); msg != "Task already finished" {
				t.Errorf("expected 'Task already finished', got %q", msg)
			}
		})

		t.Run("Second Interrupt Refused By Backend", func(t *testing.T) {
			backend, _, c := loggedIn(t)
			id := backend.PutTask(models.TaskSnapshot{Status: models.StatusTryingLinks, Link: "https://example.com"})

			if err := c.scrape.InterruptTask(ctx, id); err != nil {
				t.Fatalf("expected first interrupt to succeed, got %v", err)
			}
			err := c.scrape.InterruptTask(ctx, id)
			if !errors.Is(err, shared.ErrInterruptAlreadySent) {
				t.Fatalf("expected ErrInterruptAlreadySent, got %v", err)
			}
			if msg := InterruptMessage(err); msg != "Interrupt signal already sent" {
				t.Errorf("expected 'Interrupt signal already sent', got %q", msg)
			}
		})

		t.Run("Invalid ID", func(t *testing.T) {
			_, _, c := loggedIn(t)

			if err := c.scrape.InterruptTask(ctx, 0); !errors.Is(err, shared.ErrInvalidTaskID) {
				t.Errorf("expected ErrInvalidTaskID, got %v", err)
			}
		})
	})
}
