package services

import (
	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/managers/fstree"
	"github.com/deploymenttheory/go-btrfs/internal/managers/recovery"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// FilesystemHandle is the metadata access a recovery run needs: ordered
// reads plus transactional writes against the same store.
type FilesystemHandle interface {
	interfaces.TreeStore
	interfaces.TransactionManager
}

// UndeleteResult summarizes one orphan scan: markers visited and
// subvolumes successfully re-attached.
type UndeleteResult struct {
	Found     uint64
	Recovered uint64
}

// UndeleteService recovers logically-deleted subvolumes that are still
// structurally intact.
type UndeleteService struct {
	handle FilesystemHandle
	notify func(subvolID types.ObjectID)
}

// NewUndeleteService creates a service over the given filesystem handle.
func NewUndeleteService(handle FilesystemHandle) *UndeleteService {
	return &UndeleteService{handle: handle}
}

// SetNotify installs a callback invoked once per recovered subvolume.
func (s *UndeleteService) SetNotify(notify func(subvolID types.ObjectID)) {
	s.notify = notify
}

// UndeleteSubvolumes scans the deletion markers and recovers every intact
// subvolume. subvolID zero scans everything; a non-zero id restricts the
// scan to that subvolume and fails with recovery.ErrTargetNotFound when
// it has no marker. The returned counts are valid even when err is a
// recovery.RecoveryError: earlier recoveries stay committed.
func (s *UndeleteService) UndeleteSubvolumes(subvolID uint64) (UndeleteResult, error) {
	fstreeMgr := fstree.NewManager(s.generation())
	oracle := recovery.NewOracle(s.handle)
	recoverer := recovery.NewRecoverer(s.handle, fstreeMgr)

	scanner := recovery.NewScanner(s.handle, oracle, recoverer)
	scanner.Notify = s.notify

	found, recovered, err := scanner.Scan(types.ObjectID(subvolID))
	return UndeleteResult{Found: found, Recovered: recovered}, err
}

// generation returns the filesystem generation to stamp new records with,
// when the handle knows it.
func (s *UndeleteService) generation() uint64 {
	type generationer interface {
		Generation() uint64
	}
	if g, ok := s.handle.(generationer); ok && g.Generation() > 0 {
		return g.Generation()
	}
	return 1
}
