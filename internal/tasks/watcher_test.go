package tasks

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/shared"
	tu "github.com/desertthunder/scrapectl/internal/testing"
)

// recorder collects callback invocations from a watch handle.
type recorder struct {
	mu       sync.Mutex
	percents []float64
	statuses []models.TaskStatus
	fatals   []error
	events   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{events: make(chan struct{}, 64)}
}

func (r *recorder) onSnapshot(snap models.TaskSnapshot) {
	v := Derive(&snap)
	r.mu.Lock()
	r.percents = append(r.percents, v.Percent)
	r.statuses = append(r.statuses, snap.Status)
	r.mu.Unlock()
	r.events <- struct{}{}
}

func (r *recorder) onFatal(err error) {
	r.mu.Lock()
	r.fatals = append(r.fatals, err)
	r.mu.Unlock()
	r.events <- struct{}{}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses) + len(r.fatals)
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for r.count() < n {
		select {
		case <-r.events:
		case <-timeout:
			t.Fatalf("timed out waiting for %d deliveries, got %d", n, r.count())
		}
	}
}

func waitDone(t *testing.T, h *WatchHandle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("handle did not finish")
	}
}

func TestWatcher(t *testing.T) {
	t.Run("Progress Then Single Fatal", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		backend.Script(testTask,
			tu.StreamScript{Events: []models.TaskSnapshot{
				snapshot(models.StatusPending, 0, 0, 0),
				snapshot(models.StatusTryingLinks, 1, 1, 2),
			}},
			tu.StreamScript{Status: http.StatusInternalServerError},
		)

		w := NewWatcher(newTestStream(backend.URL, client, fastOpts), nil)
		rec := newRecorder()
		h := w.Open(context.Background(), testTask, rec.onSnapshot, rec.onFatal)
		waitDone(t, h)

		rec.mu.Lock()
		defer rec.mu.Unlock()
		if len(rec.percents) != 2 || rec.percents[0] != 0 || rec.percents[1] != 100 {
			t.Errorf("expected progress [0 100], got %v", rec.percents)
		}
		if len(rec.fatals) != 1 {
			t.Fatalf("expected exactly 1 fatal, got %d", len(rec.fatals))
		}
		if !errors.Is(rec.fatals[0], shared.ErrStreamClosed) {
			t.Errorf("expected ErrStreamClosed, got %v", rec.fatals[0])
		}

		h.Close()
		if n := len(rec.statuses) + len(rec.fatals); n != 3 {
			t.Errorf("expected no deliveries after close, got %d total", n)
		}
	})

	t.Run("Nothing Starts After Close", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		events := make([]models.TaskSnapshot, 0, 40)
		for i := range 40 {
			events = append(events, snapshot(models.StatusTryingLinks, 40, 0, i))
		}
		backend.Script(testTask, tu.StreamScript{Hold: true, Events: events})

		var (
			closeReturned atomic.Bool
			late          atomic.Int32
			calls         atomic.Int32
			first         = make(chan struct{})
			release       = make(chan struct{})
		)
		// The first callback is still running when Close is called.
		onSnapshot := func(models.TaskSnapshot) {
			if closeReturned.Load() {
				late.Add(1)
			}
			if calls.Add(1) == 1 {
				close(first)
				<-release
			}
		}

		w := NewWatcher(newTestStream(backend.URL, client, fastOpts), nil)
		h := w.Open(context.Background(), testTask, onSnapshot, func(err error) { late.Add(1) })
		select {
		case <-first:
		case <-time.After(5 * time.Second):
			t.Fatal("no snapshot delivered")
		}

		h.Close()
		closeReturned.Store(true)
		close(release)
		waitDone(t, h)

		if n := late.Load(); n != 0 {
			t.Errorf("expected no callbacks after close, got %d", n)
		}
	})

	t.Run("Close From Callback", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		backend.Script(testTask, tu.StreamScript{Hold: true, Events: []models.TaskSnapshot{
			snapshot(models.StatusPending, 0, 0, 0),
			snapshot(models.StatusInitiating, 0, 0, 0),
			snapshot(models.StatusTryingLinks, 1, 0, 0),
		}})

		w := NewWatcher(newTestStream(backend.URL, client, fastOpts), nil)
		var (
			mu    sync.Mutex
			calls int
			h     *WatchHandle
			ready = make(chan struct{})
		)
		h = w.Open(context.Background(), testTask, func(models.TaskSnapshot) {
			<-ready
			mu.Lock()
			calls++
			mu.Unlock()
			h.Close()
		}, nil)
		close(ready)
		waitDone(t, h)

		mu.Lock()
		defer mu.Unlock()
		if calls != 1 {
			t.Errorf("expected 1 callback, got %d", calls)
		}
	})

	t.Run("Open Closes Previous", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		other := testTask + 1
		backend.Script(testTask, tu.StreamScript{Hold: true, Events: []models.TaskSnapshot{
			snapshot(models.StatusPending, 0, 0, 0),
		}})
		backend.Script(other, tu.StreamScript{Events: []models.TaskSnapshot{
			{ID: tu.Ptr(other), Status: models.StatusFinished, Link: "https://other.example"},
		}})

		w := NewWatcher(newTestStream(backend.URL, client, fastOpts), nil)
		first := newRecorder()
		h1 := w.Open(context.Background(), testTask, first.onSnapshot, first.onFatal)
		first.wait(t, 1)

		second := newRecorder()
		h2 := w.Open(context.Background(), other, second.onSnapshot, second.onFatal)
		waitDone(t, h1)
		second.wait(t, 1)

		if h2.TaskID() != other {
			t.Errorf("expected task %d, got %d", other, h2.TaskID())
		}
		if first.count() != 1 {
			t.Errorf("expected first handle to stop at 1 delivery, got %d", first.count())
		}
		w.Close()
		waitDone(t, h2)
	})

	t.Run("Close Is Idempotent", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		backend.Script(testTask, tu.StreamScript{Hold: true})

		w := NewWatcher(newTestStream(backend.URL, client, fastOpts), nil)
		h := w.Open(context.Background(), testTask, nil, nil)
		h.Close()
		h.Close()
		w.Close()
		waitDone(t, h)
	})
}

func TestSubscription(t *testing.T) {
	t.Run("Delivers In Order", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		backend.Script(testTask, tu.StreamScript{Events: []models.TaskSnapshot{
			snapshot(models.StatusPending, 0, 0, 0),
			snapshot(models.StatusTryingLinks, 2, 2, 1),
			snapshot(models.StatusFinished, 2, 2, 4),
		}})

		sub := newTestStream(backend.URL, client, fastOpts).Subscribe(context.Background(), testTask)
		defer sub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var got []models.TaskStatus
		for {
			u, ok := sub.Next(ctx)
			if !ok {
				break
			}
			if u.Fatal() {
				t.Fatalf("unexpected fatal: %v", u.Err)
			}
			got = append(got, u.Snapshot.Status)
		}
		want := []models.TaskStatus{models.StatusPending, models.StatusTryingLinks, models.StatusFinished}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("update %d: expected %s, got %s", i, want[i], got[i])
			}
		}
		if sub.TaskID() != testTask {
			t.Errorf("expected task %d, got %d", testTask, sub.TaskID())
		}
	})

	t.Run("Close Drops Buffered Updates", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		backend.Script(testTask, tu.StreamScript{Hold: true, Events: []models.TaskSnapshot{
			snapshot(models.StatusPending, 0, 0, 0),
			snapshot(models.StatusInitiating, 0, 0, 0),
		}})

		sub := newTestStream(backend.URL, client, fastOpts).Subscribe(context.Background(), testTask)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, ok := sub.Next(ctx); !ok {
			t.Fatal("expected a first update")
		}
		sub.Close()
		sub.Close()
		if u, ok := sub.Next(ctx); ok {
			t.Errorf("expected no update after close, got %+v", u)
		}
	})

	t.Run("Fatal Is Last", func(t *testing.T) {
		backend, client := newStreamBackend(t)
		backend.Script(testTask, tu.StreamScript{Status: http.StatusBadRequest})

		sub := newTestStream(backend.URL, client, fastOpts).Subscribe(context.Background(), testTask)
		defer sub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		u, ok := sub.Next(ctx)
		if !ok || !u.Fatal() {
			t.Fatalf("expected fatal update, got %+v (ok=%v)", u, ok)
		}
		if _, ok := sub.Next(ctx); ok {
			t.Error("expected stream to end after fatal")
		}
		if ctx.Err() != nil {
			t.Error("expected Next to return before the deadline")
		}
	})
}
