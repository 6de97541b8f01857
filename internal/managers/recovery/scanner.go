package recovery

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Scanner walks the deletion markers of the store backward and recovers
// every subvolume that is still intact. Markers of non-intact subvolumes
// are left for the background cleanup path.
type Scanner struct {
	store     interfaces.TreeStore
	oracle    *Oracle
	recoverer *Recoverer

	// Notify is called once per successfully recovered subvolume.
	Notify func(subvolID types.ObjectID)
}

// NewScanner returns a scanner over the given store and collaborators.
func NewScanner(store interfaces.TreeStore, oracle *Oracle, recoverer *Recoverer) *Scanner {
	return &Scanner{
		store:     store,
		oracle:    oracle,
		recoverer: recoverer,
	}
}

// Scan visits deletion markers in strictly decreasing subvolume-id order
// and recovers the intact ones. filterID zero scans everything; a
// non-zero filterID restricts the scan to that one subvolume and yields
// ErrTargetNotFound when it has no marker. found counts every marker
// visited, recovered the subset successfully re-attached. A failed
// recovery halts the scan; earlier recoveries stay committed.
func (s *Scanner) Scan(filterID types.ObjectID) (found, recovered uint64, err error) {
	// Start strictly above any marker the scan could care about, then
	// walk backward. The order is deterministic: repeated runs over an
	// unchanged store visit subvolumes in the same sequence.
	start := uint64(types.MaxOffset)
	if filterID != 0 {
		start = uint64(filterID) + 1
	}
	cursor, _, err := s.store.Search(types.Key{
		ObjectID: types.OrphanObjectID,
		Type:     types.ItemTypeOrphan,
		Offset:   start,
	})
	if err != nil {
		return 0, 0, &ScanError{Err: fmt.Errorf("failed to search orphan markers: %w", err)}
	}

	for {
		if err := cursor.PreviousMatching(types.OrphanObjectID, types.ItemTypeOrphan); err != nil {
			if errors.Is(err, interfaces.ErrExhausted) {
				if filterID != 0 {
					return found, recovered, fmt.Errorf("subvolume %d: %w", filterID, ErrTargetNotFound)
				}
				return found, recovered, nil
			}
			return found, recovered, &ScanError{Found: found, Recovered: recovered, Err: err}
		}

		key, err := cursor.Key()
		if err != nil {
			return found, recovered, &ScanError{Found: found, Recovered: recovered, Err: err}
		}
		subvolID := types.ObjectID(key.Offset)

		if filterID != 0 && subvolID != filterID {
			// The walk moved past where the target's marker would be,
			// so the target has none. Stop instead of scanning on.
			return found, recovered, fmt.Errorf("subvolume %d: %w", filterID, ErrTargetNotFound)
		}

		found++

		// A non-intact subvolume is skipped, not failed: lazy deletion
		// already touched its tree, and the marker is left for the
		// background cleanup path.
		if s.oracle.IsIntact(subvolID) {
			if err := s.recoverer.Recover(subvolID); err != nil {
				return found, recovered, &RecoveryError{
					SubvolID:  subvolID,
					Found:     found,
					Recovered: recovered,
					Err:       err,
				}
			}
			recovered++
			if s.Notify != nil {
				s.Notify(subvolID)
			}
		}

		if filterID != 0 {
			// The target has been processed; markers below it are out
			// of scope.
			return found, recovered, nil
		}
	}
}
