package restore

// Policy bounds what a single restore may extract. It is immutable for
// the duration of one run.
type Policy struct {
	// MaxFiles caps the number of extracted entries. Zero means
	// unlimited.
	MaxFiles int64
	// MaxBytes caps the cumulative extracted payload size. Zero means
	// unlimited.
	MaxBytes int64
	// AllowPax applies PAX extended records merged into an entry's
	// header, such as sub-second timestamps. When false the records
	// are ignored and only ustar-representable attributes are used.
	// PAX header members themselves never materialize either way, and
	// their presence never causes the following entries to be skipped.
	AllowPax bool
	// AllowSparse admits GNU/PAX sparse entries, materialized with
	// holes written out as zeros.
	AllowSparse bool
}

// Result summarizes a completed restore or dry-run.
type Result struct {
	Archive       string
	Destination   string
	DryRun        bool
	FilesRestored int64
	DirsCreated   int64
	FilesSkipped  int64
	BytesWritten  int64
	// Warnings lists skipped entries and non-fatal cleanup failures.
	Warnings []string
	// BackupPath is where the previous destination tree was parked, if
	// it was retained.
	BackupPath string
}
