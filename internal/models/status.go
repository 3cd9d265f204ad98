package models

// IsInterruptible reports whether the backend accepts an interrupt for a task in status s.
func IsInterruptible(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInitiating, StatusTryingLinks:
		return true
	}
	return false
}

// IsTerminal reports whether no further snapshots are expected after s.
func IsTerminal(s TaskStatus) bool {
	switch s {
	case StatusFinished, StatusError, StatusInterrupted:
		return true
	}
	return false
}

// IsErrorState reports whether progress for s should be flagged as erroneous.
// Unlike [IsTerminal] it excludes FINISHED.
func IsErrorState(s TaskStatus) bool {
	return s == StatusError || s == StatusInterrupted
}

// ProgressPercent derives a 0-100 progress value from a snapshot.
//
// The second return value is false when there is no snapshot yet. The result is not clamped:
// a backend that over-reports crawled links yields more than 100. Use [ClampPercent] for display.
func ProgressPercent(snap *TaskSnapshot) (float64, bool) {
	if snap == nil {
		return 0, false
	}

	if snap.Status == StatusPending || snap.Status == StatusInitiating {
		return 0, true
	}

	total := snap.TotalLinks()
	if total == 0 {
		return 100, true
	}
	return float64(snap.CrawledLinks) * 100 / float64(total), true
}

// ClampPercent limits p to [0, 100].
func ClampPercent(p float64) float64 {
	return min(max(p, 0), 100)
}
