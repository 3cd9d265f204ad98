package models

import (
	"encoding/json"
	"testing"
)

func TestDecodeSnapshot(t *testing.T) {
	t.Run("full snapshot", func(t *testing.T) {
		data := []byte(`{
			"id": 42,
			"status": "TRYING_LINKS",
			"link": "https://example.com",
			"internalLinks": 1,
			"externalLinks": 1,
			"inaccessibleLinks": 0,
			"crawledLinks": 2,
			"htmlVersion": "HTML5",
			"pageTitle": "Example",
			"loginFormPresent": true,
			"headingsByLevel": [1, 2, 0, 0, 0, 0],
			"error": null
		}`)

		snap, err := DecodeSnapshot(data)
		if err != nil {
			t.Fatalf("DecodeSnapshot() error = %v", err)
		}
		if snap.ID == nil || *snap.ID != 42 {
			t.Errorf("expected id 42, got %v", snap.ID)
		}
		if snap.Status != StatusTryingLinks {
			t.Errorf("expected TRYING_LINKS, got %s", snap.Status)
		}
		if snap.HeadingsByLevel == nil || snap.HeadingsByLevel[1] != 2 {
			t.Errorf("unexpected headings %v", snap.HeadingsByLevel)
		}
		if snap.LoginFormPresent == nil || !*snap.LoginFormPresent {
			t.Error("expected login form flag")
		}
		if snap.Error != nil {
			t.Errorf("expected nil error, got %v", *snap.Error)
		}
		if snap.TotalLinks() != 2 {
			t.Errorf("expected 2 total links, got %d", snap.TotalLinks())
		}
	})

	t.Run("minimal snapshot", func(t *testing.T) {
		snap, err := DecodeSnapshot([]byte(`{"status":"PENDING","link":"http://a.b","crawledLinks":0}`))
		if err != nil {
			t.Fatalf("DecodeSnapshot() error = %v", err)
		}
		if snap.InternalLinks != nil || snap.PageTitle != nil || snap.HeadingsByLevel != nil {
			t.Error("optional fields should stay nil")
		}
	})

	t.Run("errors", func(t *testing.T) {
		for name, data := range map[string]string{
			"malformed json": `{"status":`,
			"unknown status": `{"status":"PAUSED","link":"x"}`,
			"missing status": `{"link":"x"}`,
		} {
			t.Run(name, func(t *testing.T) {
				if _, err := DecodeSnapshot([]byte(data)); err == nil {
					t.Error("expected error")
				}
			})
		}
	})
}

func TestTaskSummaryDecode(t *testing.T) {
	var items []TaskSummary
	data := `[{"id":1,"link":"https://a.example","status":"FINISHED","pageTitle":"A","crawledLinks":3},
	          {"id":2,"link":"https://b.example","status":"ERROR","error":"timeout"}]`
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].Error == nil || *items[1].Error != "timeout" {
		t.Errorf("expected error on second item, got %v", items[1].Error)
	}
	if items[0].CrawledLinks == nil || *items[0].CrawledLinks != 3 {
		t.Errorf("expected crawled links 3, got %v", items[0].CrawledLinks)
	}
}

func TestSession(t *testing.T) {
	if (Session{}).IsAuthenticated() {
		t.Error("empty session should not be authenticated")
	}
	if !(Session{Identity: "alice"}).IsAuthenticated() {
		t.Error("session with identity should be authenticated")
	}
}
