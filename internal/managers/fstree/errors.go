package fstree

import (
	"errors"

	"github.com/deploymenttheory/go-btrfs/internal/interfaces"
)

func isNotFound(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound)
}

func isExhausted(err error) bool {
	return errors.Is(err, interfaces.ErrExhausted)
}
