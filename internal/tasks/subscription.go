package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/scrapectl/internal/models"
)

const updateBuffer = 16

// Update is one delivery from a [Subscription]: a full snapshot, or the fatal error that ended the stream.
type Update struct {
	Snapshot models.TaskSnapshot
	Err      error
}

// Fatal reports whether u carries the stream's terminal error.
func (u Update) Fatal() bool { return u.Err != nil }

// Subscription is a handle on one task's live snapshots.
//
// Updates arrive in the order the backend sent them. A fatal error is delivered at most once and is always last.
type Subscription struct {
	taskID    int
	updates   chan Update
	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
}

// Subscribe opens a subscription to task taskID. The stream runs until ctx ends or Close is called.
func (s *Stream) Subscribe(ctx context.Context, taskID int) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		taskID:  taskID,
		updates: make(chan Update, updateBuffer),
		cancel:  cancel,
		closed:  make(chan struct{}),
	}
	go sub.run(ctx, s)
	return sub
}

func (sub *Subscription) run(ctx context.Context, s *Stream) {
	defer close(sub.updates)
	defer sub.cancel()

	err := s.Run(ctx, sub.taskID, func(snap models.TaskSnapshot) bool {
		return sub.push(ctx, Update{Snapshot: snap})
	})
	if err != nil {
		sub.push(ctx, Update{Err: err})
	}
}

func (sub *Subscription) push(ctx context.Context, u Update) bool {
	select {
	case sub.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// TaskID returns the subscribed task.
func (sub *Subscription) TaskID() int { return sub.taskID }

// Next blocks for the next update. It returns false once the subscription is closed, the stream has ended,
// or ctx is done.
func (sub *Subscription) Next(ctx context.Context) (Update, bool) {
	select {
	case <-sub.closed:
		return Update{}, false
	case <-ctx.Done():
		return Update{}, false
	case u, ok := <-sub.updates:
		if !ok || sub.isClosed() {
			return Update{}, false
		}
		return u, true
	}
}

// Close stops the stream and drops anything still buffered. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.closeOnce.Do(func() {
		close(sub.closed)
		sub.cancel()
	})
}

func (sub *Subscription) isClosed() bool {
	select {
	case <-sub.closed:
		return true
	default:
		return false
	}
}
