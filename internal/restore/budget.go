package restore

import "fmt"

// Budgeter tracks cumulative extraction cost against policy ceilings.
// Charges happen before the corresponding bytes are written, so a
// run can overshoot a ceiling by at most one in-flight entry.
type Budgeter struct {
	maxFiles int64
	maxBytes int64
	files    int64
	bytes    int64
}

// NewBudgeter creates a budgeter for the policy's ceilings. Zero
// ceilings disable the respective limit.
func NewBudgeter(policy Policy) *Budgeter {
	return &Budgeter{maxFiles: policy.MaxFiles, maxBytes: policy.MaxBytes}
}

// Charge accounts one entry of the given payload size. On refusal the
// counters are left unchanged and a fatal ErrBudgetExceeded is
// returned naming the ceiling.
func (b *Budgeter) Charge(size int64) error {
	if b.maxFiles > 0 && b.files+1 > b.maxFiles {
		return fmt.Errorf("%w: archive exceeds max-files ceiling of %d", ErrBudgetExceeded, b.maxFiles)
	}
	if b.maxBytes > 0 && b.bytes+size > b.maxBytes {
		return fmt.Errorf("%w: archive exceeds max-bytes ceiling of %d", ErrBudgetExceeded, b.maxBytes)
	}
	b.files++
	b.bytes += size
	return nil
}

// Files returns the number of charged entries.
func (b *Budgeter) Files() int64 { return b.files }

// Bytes returns the cumulative charged payload size.
func (b *Budgeter) Bytes() int64 { return b.bytes }
