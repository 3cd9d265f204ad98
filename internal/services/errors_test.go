package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/desertthunder/scrapectl/internal/shared"
)

func TestClassify(t *testing.T) {
	forbidden := &APIError{Method: http.MethodGet, Path: TasksPath, StatusCode: http.StatusForbidden}
	badRequest := &APIError{Method: http.MethodPost, Path: AddTaskPath, StatusCode: http.StatusBadRequest, Body: "nope"}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"Nil", nil, KindNone},
		{"Forbidden", forbidden, KindAuthExpired},
		{"Wrapped Forbidden", fmt.Errorf("listing: %w", forbidden), KindAuthExpired},
		{"Escalated Forbidden", fmt.Errorf("%w: %w", shared.ErrUnexpected, forbidden), KindUnexpected},
		{"Bad Request", badRequest, KindValidation},
		{"Invalid URL", shared.ErrInvalidURL, KindValidation},
		{"Final State", shared.ErrTaskInFinalState, KindValidation},
		{"Already Sent", shared.ErrInterruptAlreadySent, KindValidation},
		{"Bad Credentials", fmt.Errorf("%w: %w", shared.ErrBadCredentials, forbidden), KindValidation},
		{"Stream Closed", fmt.Errorf("task 3: %w", shared.ErrStreamClosed), KindStreamFatal},
		{"Server Error", &APIError{StatusCode: http.StatusInternalServerError}, KindUnexpected},
		{"Plain Error", errors.New("boom"), KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Login Bad Credentials", LoginMessage(shared.ErrBadCredentials), "Bad credentials"},
		{"Login Status", LoginMessage(&APIError{StatusCode: 500, Body: "oops"}), "Request failed: 500: oops"},
		{"Login No Response", LoginMessage(boom), "Unexpected error: boom."},
		{"Add Invalid URL", AddTaskMessage(shared.ErrInvalidURL), "Invalid link provided"},
		{"Add Status", AddTaskMessage(&APIError{StatusCode: 502, Body: "bad gateway"}), "Request failed: 502 - bad gateway"},
		{"Add No Response", AddTaskMessage(boom), "Unexpected error: boom."},
		{"Interrupt Final", InterruptMessage(shared.ErrTaskInFinalState), "Task already finished"},
		{"Interrupt Sent", InterruptMessage(shared.ErrInterruptAlreadySent), "Interrupt signal already sent"},
		{"Interrupt Other", InterruptMessage(boom), "Could not interrupt task: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{
		KindNone:        "none",
		KindAuthExpired: "auth-expired",
		KindValidation:  "validation",
		KindStreamFatal: "stream-fatal",
		KindUnexpected:  "unexpected",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
