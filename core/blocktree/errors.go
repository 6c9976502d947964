package blocktree

import "github.com/pkg/errors"

var (
	// errors
	ErrInvalidPath      = errors.New("invalid block path")
	ErrPathNotFound     = errors.New("block path not found")
	ErrNestingViolation = errors.New("block does not allow nesting")
	ErrIndexOutOfRange  = errors.New("block index out of range")
	ErrIDNotFound       = errors.New("block not found")
	ErrDuplicateID      = errors.New("duplicate block id")
	ErrMissingID        = errors.New("block id is required")
	ErrCyclicMove       = errors.New("cannot move a block into its own subtree")
	ErrUnknownType      = errors.New("unknown block type")
)

// IsTreeError reports whether err is one of the tree errors above, i.e. a rejected edit rather than a failure.
func IsTreeError(err error) bool {
	switch errors.Cause(err) {
	case ErrInvalidPath, ErrPathNotFound, ErrNestingViolation, ErrIndexOutOfRange, ErrIDNotFound,
		ErrDuplicateID, ErrMissingID, ErrCyclicMove, ErrUnknownType:
		return true
	}
	return false
}
