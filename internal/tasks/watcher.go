package tasks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapectl/internal/models"
)

// Watcher keeps at most one task subscription open for a consumer such as a progress view.
type Watcher struct {
	stream *Stream
	logger *log.Logger

	mu      sync.Mutex
	current *WatchHandle
}

// NewWatcher creates a watcher that opens subscriptions on stream.
func NewWatcher(stream *Stream, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{stream: stream, logger: logger}
}

// WatchHandle delivers one subscription's updates to callbacks.
type WatchHandle struct {
	sub        *Subscription
	deliverMu  sync.Mutex
	closed     atomic.Bool
	inCallback atomic.Bool
	done       chan struct{}
}

// Open closes the previous handle, if any, and starts delivering task taskID's updates.
//
// Callbacks run one at a time on a goroutine owned by the handle. onFatal runs at most once, after which the
// handle releases its subscription. Either callback may be nil.
func (w *Watcher) Open(
	ctx context.Context,
	taskID int,
	onSnapshot func(models.TaskSnapshot),
	onFatal func(error),
) *WatchHandle {
	w.mu.Lock()
	prev := w.current
	w.current = nil
	w.mu.Unlock()

	if prev != nil {
		w.logger.Debug("closing previous subscription", "task", prev.TaskID())
		prev.Close()
	}

	h := &WatchHandle{
		sub:  w.stream.Subscribe(ctx, taskID),
		done: make(chan struct{}),
	}
	go h.deliver(onSnapshot, onFatal)

	w.mu.Lock()
	w.current = h
	w.mu.Unlock()
	return h
}

// Close closes the current handle.
func (w *Watcher) Close() {
	w.mu.Lock()
	h := w.current
	w.current = nil
	w.mu.Unlock()

	if h != nil {
		h.Close()
	}
}

func (h *WatchHandle) deliver(onSnapshot func(models.TaskSnapshot), onFatal func(error)) {
	defer close(h.done)
	defer h.sub.Close()

	for {
		u, ok := h.sub.Next(context.Background())
		if !ok {
			return
		}

		h.deliverMu.Lock()
		if h.closed.Load() {
			h.deliverMu.Unlock()
			return
		}
		h.inCallback.Store(true)
		switch {
		case u.Fatal() && onFatal != nil:
			onFatal(u.Err)
		case !u.Fatal() && onSnapshot != nil:
			onSnapshot(u.Snapshot)
		}
		h.inCallback.Store(false)
		h.deliverMu.Unlock()

		if u.Fatal() {
			return
		}
	}
}

// TaskID returns the watched task.
func (h *WatchHandle) TaskID() int { return h.sub.TaskID() }

// Done is closed once the handle will deliver nothing more.
func (h *WatchHandle) Done() <-chan struct{} { return h.done }

// Close stops delivery. No callback starts after Close returns, and it may be called from inside a callback.
func (h *WatchHandle) Close() {
	h.closed.Store(true)
	h.sub.Close()

	// Only the delivery goroutine sets inCallback, so true here means either we are that goroutine or
	// a callback has already started.
	if !h.inCallback.Load() {
		h.deliverMu.Lock()
		h.deliverMu.Unlock()
	}
}
