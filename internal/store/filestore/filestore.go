// Package filestore persists a tree store as a flat metadata-image file.
// The whole image is loaded at open time; transaction commits rewrite it
// atomically through a rename, so a crash mid-commit leaves the previous
// image intact.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
	"github.com/deploymenttheory/go-btrfs/internal/store/memstore"
	"github.com/deploymenttheory/go-btrfs/internal/types"
)

// Store is a file-backed tree store. It holds an exclusive advisory lock
// on the image for its whole lifetime: the recovery engine assumes it is
// the only writer.
type Store struct {
	mem        *memstore.Store
	lock       *os.File
	path       string
	generation uint64
	closed     bool
}

// Open loads a metadata image and takes its exclusive lock. The lock
// lives on a sidecar file so that commits can replace the image inode
// without dropping it.
func Open(path string) (*Store, error) {
	lock, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open image lock for %s: %w", path, err)
	}

	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("image %s is in use by another process", path)
		}
		return nil, fmt.Errorf("failed to lock image %s: %w", path, err)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	generation, items, err := unmarshalImage(buf)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("corrupt image %s: %w", path, err)
	}
	mem, err := memstore.NewStoreFromItems(items)
	if err != nil {
		lock.Close()
		return nil, fmt.Errorf("corrupt image %s: %w", path, err)
	}

	s := &Store{
		mem:        mem,
		lock:       lock,
		path:       path,
		generation: generation,
	}
	mem.SetCommitHook(s.persist)
	return s, nil
}

// Create writes a new empty image with the given generation and opens it.
func Create(path string, generation uint64) (*Store, error) {
	buf, err := marshalImage(generation, nil)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return nil, fmt.Errorf("failed to create image %s: %w", path, err)
	}
	return Open(path)
}

// Generation returns the filesystem generation recorded in the image.
func (s *Store) Generation() uint64 {
	return s.generation
}

// Search implements interfaces.TreeStore.
func (s *Store) Search(key types.Key) (interfaces.Cursor, bool, error) {
	if s.closed {
		return nil, false, interfaces.ErrStoreClosed
	}
	return s.mem.Search(key)
}

// ReadItem implements interfaces.TreeStore.
func (s *Store) ReadItem(key types.Key) ([]byte, error) {
	if s.closed {
		return nil, interfaces.ErrStoreClosed
	}
	return s.mem.ReadItem(key)
}

// Begin implements interfaces.TransactionManager. Commits flush the full
// item table back to the image before they become visible in memory.
func (s *Store) Begin(reserve int) (interfaces.Transaction, error) {
	if s.closed {
		return nil, interfaces.ErrStoreClosed
	}
	return s.mem.Begin(reserve)
}

// SetItem seeds an item outside of any transaction without persisting.
// Fixture tooling only; call Flush to write the result out.
func (s *Store) SetItem(key types.Key, data []byte) {
	s.mem.SetItem(key, data)
}

// Flush persists the current in-memory item table.
func (s *Store) Flush() error {
	if s.closed {
		return interfaces.ErrStoreClosed
	}
	return s.persist(s.mem.Snapshot())
}

// Close releases the image lock. Uncommitted state is discarded.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := unix.Flock(int(s.lock.Fd()), unix.LOCK_UN); err != nil {
		s.lock.Close()
		return fmt.Errorf("failed to unlock image %s: %w", s.path, err)
	}
	return s.lock.Close()
}

// persist writes the item table to a temporary file in the image's
// directory and renames it over the image, so the replacement is
// all-or-nothing.
func (s *Store) persist(items []memstore.Item) error {
	if s.closed {
		return interfaces.ErrStoreClosed
	}

	buf, err := marshalImage(s.generation, items)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temporary image: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary image: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace image %s: %w", s.path, err)
	}
	return nil
}
