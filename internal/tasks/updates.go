package tasks

import (
	"fmt"

	"github.com/desertthunder/scrapectl/internal/models"
)

// View is what a progress display needs to know about the latest snapshot.
type View struct {
	Snapshot      *models.TaskSnapshot
	Percent       float64 // unclamped, see [models.ProgressPercent]
	HasProgress   bool    // false until the first snapshot arrives
	Erroneous     bool
	Interruptible bool
	Terminal      bool
}

// Derive computes the [View] for snap, which may be nil.
func Derive(snap *models.TaskSnapshot) View {
	v := View{Snapshot: snap}
	v.Percent, v.HasProgress = models.ProgressPercent(snap)
	if snap == nil {
		return v
	}
	v.Erroneous = models.IsErrorState(snap.Status)
	v.Interruptible = models.IsInterruptible(snap.Status)
	v.Terminal = models.IsTerminal(snap.Status)
	return v
}

// DisplayPercent returns Percent clamped to 0-100.
func (v View) DisplayPercent() float64 {
	return models.ClampPercent(v.Percent)
}

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Step    int    // links handled so far
	Total   int    // links in the batch
	Message string // Human-readable message for display
	Result  *SubmitResult
}

func submittedUpdate(step, total int, res *SubmitResult) ProgressUpdate {
	return ProgressUpdate{
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (task %d)", step, total, res.Link, res.TaskID),
		Result:  res,
	}
}

func submitFailedUpdate(step, total int, res *SubmitResult) ProgressUpdate {
	return ProgressUpdate{
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Link, res.Err),
		Result:  res,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
