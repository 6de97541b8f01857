package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsAreValid(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
}

func TestValidateRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown backend", Options{Backend: 7, BlockSize: BlockSizeDefault, LimitNr: 1}},
		{"block size too small", Options{BlockSize: BlockSizeMin / 2, LimitNr: 1}},
		{"block size too large", Options{BlockSize: BlockSizeMax * 2, LimitNr: 1}},
		{"block size not a power of two", Options{BlockSize: BlockSizeDefault + 1, LimitNr: 1}},
		{"zero hash limit", Options{BlockSize: BlockSizeDefault, LimitNr: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.opts.Validate())
		})
	}
}

func TestEnableValidatesBeforeProbing(t *testing.T) {
	err := Enable("/mnt", Options{BlockSize: 1000, LimitNr: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotSupported, "invalid options must fail before the kernel probe")

	assert.ErrorIs(t, Enable("/mnt", DefaultOptions()), ErrNotSupported)
}

func TestOperationsRequireMountPath(t *testing.T) {
	assert.Error(t, Enable("", DefaultOptions()))
	assert.Error(t, Disable(""))
	_, err := GetStatus("")
	assert.Error(t, err)
}

func TestUnsupportedKernelSurface(t *testing.T) {
	assert.ErrorIs(t, Disable("/mnt"), ErrNotSupported)
	_, err := GetStatus("/mnt")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestBackendString(t *testing.T) {
	assert.Equal(t, "inmemory", BackendInMemory.String())
	assert.Equal(t, "backend(3)", Backend(3).String())
}
