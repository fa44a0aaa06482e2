package journal

import "time"

// Run records one restore invocation, including dry-runs. The journal
// is an audit trail of operations, not a version history of the
// destination.
type Run struct {
	ID            int64
	Archive       string
	Destination   string
	DryRun        bool
	StartTime     time.Time
	EndTime       time.Time
	FilesRestored int64
	FilesSkipped  int64
	BytesWritten  int64
	Status        string // "running", "completed", "failed", "interrupted"
	ErrorMessage  string
}
