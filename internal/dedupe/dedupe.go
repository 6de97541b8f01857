// Package dedupe is the control-plane surface for inband (write-time)
// deduplication. The hash-index backend lives in the kernel; this side
// only validates parameters and shapes requests, it never touches data.
package dedupe

import (
	"errors"
	"fmt"
)

// Backend selects where the kernel keeps the dedupe hash index.
type Backend int

const (
	// BackendInMemory keeps the hash index in memory: fast, but the
	// index is lost on unmount.
	BackendInMemory Backend = 0

	backendCount = 1
)

// Block size bounds for deduplication, in bytes.
const (
	BlockSizeMin     = 16 * 1024
	BlockSizeMax     = 8 * 1024 * 1024
	BlockSizeDefault = 128 * 1024
)

// LimitNrDefault is the default cap on the number of tracked hashes for
// the in-memory backend.
const LimitNrDefault = 32 * 1024

// HashSHA256 is the only supported hash algorithm.
const HashSHA256 = 0

// ErrNotSupported is returned when the running kernel exposes no inband
// dedupe facility.
var ErrNotSupported = errors.New("inband deduplication is not supported by this kernel")

// Options carries the parameters of an enable request.
type Options struct {
	Backend   Backend
	BlockSize uint64
	LimitNr   uint64
}

// DefaultOptions returns the options an enable request starts from.
func DefaultOptions() Options {
	return Options{
		Backend:   BackendInMemory,
		BlockSize: BlockSizeDefault,
		LimitNr:   LimitNrDefault,
	}
}

// Validate checks the options against the facility's limits.
func (o Options) Validate() error {
	if o.Backend < 0 || int(o.Backend) >= backendCount {
		return fmt.Errorf("unknown dedupe backend %d", o.Backend)
	}
	if o.BlockSize < BlockSizeMin || o.BlockSize > BlockSizeMax {
		return fmt.Errorf("dedupe block size %d out of range [%d, %d]", o.BlockSize, BlockSizeMin, BlockSizeMax)
	}
	if o.BlockSize&(o.BlockSize-1) != 0 {
		return fmt.Errorf("dedupe block size %d is not a power of two", o.BlockSize)
	}
	if o.LimitNr == 0 {
		return fmt.Errorf("dedupe hash limit must be positive")
	}
	return nil
}

// String renders the backend name.
func (b Backend) String() string {
	switch b {
	case BackendInMemory:
		return "inmemory"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Status describes the dedupe state of a mounted filesystem.
type Status struct {
	Enabled   bool
	Backend   Backend
	BlockSize uint64
	LimitNr   uint64
}

// Enable asks the kernel to turn on inband deduplication for the mounted
// filesystem at path. The facility never landed upstream, so this
// reports ErrNotSupported after validating the request.
func Enable(path string, opts Options) error {
	if path == "" {
		return fmt.Errorf("mount path is required")
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	return ErrNotSupported
}

// Disable asks the kernel to turn off inband deduplication for the
// mounted filesystem at path.
func Disable(path string) error {
	if path == "" {
		return fmt.Errorf("mount path is required")
	}
	return ErrNotSupported
}

// GetStatus queries the kernel for the current dedupe state of the
// mounted filesystem at path.
func GetStatus(path string) (Status, error) {
	if path == "" {
		return Status{}, fmt.Errorf("mount path is required")
	}
	return Status{}, ErrNotSupported
}
