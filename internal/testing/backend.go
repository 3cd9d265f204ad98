package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/desertthunder/scrapectl/internal/models"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// RecordedRequest is one request seen by a [Backend].
type RecordedRequest struct {
	Method    string
	Path      string
	RequestID string
	LastEvent string
}

// StreamScript describes what one connection to a task's listen endpoint receives.
type StreamScript struct {
	Status    int                   // response status, 0 means 200
	Events    []models.TaskSnapshot // sent in order as "message" events
	Hold      bool                  // keep the connection open after the events
	FirstID   int                   // id of the first event, 0 means 1
	NotStream bool                  // answer with application/json instead of text/event-stream
}

// Backend is an in-process stand-in for the crawl backend.
//
// Sessions are two cookies: access (path /api/) and refresh (path /api/auth/refresh-token), matching the real service.
type Backend struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]string
	access      string
	refresh     string
	generation  int
	failRefresh bool
	forbidAll   bool
	nextID      int
	tasks       map[int]*models.TaskSnapshot
	order       []int
	scripts     map[int][]StreamScript
	requests    []RecordedRequest
	done        chan struct{}
	closeOnce   sync.Once
}

// NewBackend starts a backend that accepts the given username/password pairs.
func NewBackend(users map[string]string) *Backend {
	b := &Backend{
		users:   users,
		tasks:   map[int]*models.TaskSnapshot{},
		scripts: map[int][]StreamScript{},
		done:    make(chan struct{}),
	}

	r := NewRouter()
	r.Use(b.record)
	r.Handle(http.MethodPost, "/api/auth/", http.HandlerFunc(b.login))
	r.Handle(http.MethodPost, "/api/auth/refresh-token", http.HandlerFunc(b.refreshToken))
	r.Handle(http.MethodPost, "/api/auth/log-out", http.HandlerFunc(b.logOut), b.requireAccess)
	r.Handle(http.MethodPost, "/api/scrape/add-task", http.HandlerFunc(b.addTask), b.requireAccess)
	r.Handle(http.MethodGet, "/api/scrape/tasks", http.HandlerFunc(b.listTasks), b.requireAccess)
	r.Handle(http.MethodPost, "/api/scrape/task/{id}/interrupt", http.HandlerFunc(b.interrupt), b.requireAccess)
	r.Handle(http.MethodGet, "/api/scrape/task/{id}/listen", http.HandlerFunc(b.listen), b.requireAccess)

	b.Server = httptest.NewServer(r)
	return b
}

// Close releases held streams and shuts the server down.
func (b *Backend) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	b.Server.Close()
}

// ExpireAccess invalidates the current access token. The refresh token stays valid.
func (b *Backend) ExpireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = ""
}

// FailRefresh makes every refresh exchange answer 403.
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// ForbidAll makes every protected endpoint answer 403 even with a valid session.
func (b *Backend) ForbidAll(forbid bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forbidAll = forbid
}

// PutTask stores snap under its id, or a fresh id when it has none, and returns the id.
func (b *Backend) PutTask(snap models.TaskSnapshot) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putTask(snap)
}

func (b *Backend) putTask(snap models.TaskSnapshot) int {
	id := 0
	if snap.ID != nil {
		id = *snap.ID
	} else {
		b.nextID++
		id = b.nextID
		snap.ID = &id
	}
	if id > b.nextID {
		b.nextID = id
	}
	if _, ok := b.tasks[id]; !ok {
		b.order = append(b.order, id)
	}
	b.tasks[id] = &snap
	return id
}

// Task returns the stored state of task id.
func (b *Backend) Task(id int) (models.TaskSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap, ok := b.tasks[id]
	if !ok {
		return models.TaskSnapshot{}, false
	}
	return *snap, true
}

// Script queues connections for task id's listen endpoint. Each connection consumes one script.
func (b *Backend) Script(id int, scripts ...StreamScript) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[id] = append(b.scripts[id], scripts...)
}

// Requests returns every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// Count returns how many requests hit method and path.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-ID"),
			LastEvent: r.Header.Get("Last-Event-ID"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AccessCookie)
		b.mu.Lock()
		ok := !b.forbidAll && err == nil && b.access != "" && cookie.Value == b.access
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// issue must be called with mu held.
func (b *Backend) issue(w http.ResponseWriter, withRefresh bool) {
	b.generation++
	b.access = fmt.Sprintf("access-%d", b.generation)
	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: b.access, Path: "/api/", HttpOnly: true})
	if withRefresh {
		b.refresh = fmt.Sprintf("refresh-%d", b.generation)
		http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: b.refresh, Path: "/api/auth/refresh-token", HttpOnly: true})
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if pass, ok := b.users[creds.Username]; !ok || pass != creds.Password {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	b.issue(w, true)
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookie)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRefresh || err != nil || b.refresh == "" || cookie.Value != b.refresh {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	b.issue(w, false)
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) logOut(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.access, b.refresh = "", ""
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: "", Path: "/api/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "", Path: "/api/auth/refresh-token", MaxAge: -1})
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) addTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	u, err := url.ParseRequestURI(body.Link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeText(w, http.StatusBadRequest, "Invalid URL")
		return
	}

	b.mu.Lock()
	id := b.putTask(models.TaskSnapshot{Status: models.StatusPending, Link: body.Link})
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, models.AddTaskResponse{ID: id})
}

func (b *Backend) listTasks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	list := make([]models.TaskSummary, 0, len(b.order))
	for _, id := range b.order {
		t := b.tasks[id]
		crawled := t.CrawledLinks
		list = append(list, models.TaskSummary{
			ID:                id,
			Link:              t.Link,
			Status:            t.Status,
			InaccessibleLinks: t.InaccessibleLinks,
			PageTitle:         t.PageTitle,
			CrawledLinks:      &crawled,
			Error:             t.Error,
		})
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, list)
}

func (b *Backend) interrupt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid task id")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	task, ok := b.tasks[id]
	switch {
	case !ok:
		writeText(w, http.StatusNotFound, "no task found")
	case task.Status == models.StatusInterrupting:
		writeText(w, http.StatusBadRequest, "interrupt already sent")
	case models.IsTerminal(task.Status):
		writeText(w, http.StatusBadRequest, "task already in final state")
	default:
		task.Status = models.StatusInterrupting
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Backend) listen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid task id")
		return
	}

	b.mu.Lock()
	var script StreamScript
	if queued := b.scripts[id]; len(queued) > 0 {
		script, b.scripts[id] = queued[0], queued[1:]
	} else if task, ok := b.tasks[id]; ok {
		script = StreamScript{Events: []models.TaskSnapshot{*task}}
	} else {
		script = StreamScript{Status: http.StatusBadRequest}
	}
	b.mu.Unlock()

	if script.Status != 0 && script.Status != http.StatusOK {
		writeText(w, script.Status, "invalid task id")
		return
	}
	if script.NotStream {
		writeJSON(w, http.StatusOK, script.Events)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	eventID := script.FirstID
	if eventID == 0 {
		eventID = 1
	}
	for _, snap := range script.Events {
		data, _ := json.Marshal(snap)
		fmt.Fprintf(w, "id: %d\nevent: message\ndata: %s\n\n", eventID, data)
		eventID++
		if flusher != nil {
			flusher.Flush()
		}
	}

	if script.Hold {
		select {
		case <-r.Context().Done():
		case <-b.done:
		}
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
