package restore

import "errors"

// Sentinel errors classifying restore failures. The CLI maps these to
// distinct exit codes.
var (
	// ErrInterrupted reports a cooperative cancellation observed at an
	// entry boundary, typically after SIGINT/SIGTERM.
	ErrInterrupted = errors.New("restore interrupted")

	// ErrIntegrity reports a checksum mismatch between the archive and
	// its manifest entry. Extraction never starts after this.
	ErrIntegrity = errors.New("archive integrity check failed")

	// ErrBudgetExceeded reports an archive that would exceed the
	// configured file or byte ceiling.
	ErrBudgetExceeded = errors.New("extraction budget exceeded")

	// ErrStagingLeftover reports a pre-existing staging directory,
	// usually left by a crashed run. It is never silently reused.
	ErrStagingLeftover = errors.New("staging directory already exists")

	// ErrCrossDevice reports a staging location on a different
	// filesystem than the destination; the final rename could not be
	// atomic there.
	ErrCrossDevice = errors.New("staging and destination are on different filesystems")
)
