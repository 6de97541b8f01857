package recovery

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// ErrTargetNotFound is returned when a caller-specified subvolume has no
// orphan marker, so there is nothing to recover. Distinguishable from an
// empty scan, which succeeds with zero counts.
var ErrTargetNotFound = errors.New("no orphan marker for subvolume")

// RecoveryError reports a failed recovery of one subvolume. The scan
// halts at the failing subvolume; Found and Recovered carry the progress
// made before the failure, which stays committed.
type RecoveryError struct {
	SubvolID  types.ObjectID
	Found     uint64
	Recovered uint64
	Err       error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("failed to recover subvolume %d (found %d, recovered %d): %v",
		e.SubvolID, e.Found, e.Recovered, e.Err)
}

func (e *RecoveryError) Unwrap() error {
	return e.Err
}

// ScanError reports a store traversal failure unrelated to exhaustion.
// Found and Recovered carry the progress made before the failure.
type ScanError struct {
	Found     uint64
	Recovered uint64
	Err       error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("orphan scan failed (found %d, recovered %d): %v",
		e.Found, e.Recovered, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
