package winmd

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig reports caller-supplied names, versions or options
	// that are rejected before any byte is emitted.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInconsistentLayout reports a violated layout invariant, such as an
	// offset that no longer fits in 32 bits.
	ErrInconsistentLayout = errors.New("inconsistent layout")

	// ErrContractViolation reports metadata handed over by the metadata
	// model that disagrees with itself.
	ErrContractViolation = errors.New("metadata contract violation")
)
