package blocktree

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// IDFunc generates block ids.
type IDFunc func() string

// NewID returns a fresh random block id.
func NewID() string {
	return uuid.New().String()
}

// Resolve returns the block at path p. Base never resolves to a block.
func Resolve(root Blocks, p Path) (*Block, bool) {
	if p.IsBase() {
		return nil, false
	}
	seq := root
	var b *Block
	for _, i := range p {
		if i < 0 || i >= len(seq) {
			return nil, false
		}
		b = seq[i]
		seq = b.Blocks
	}
	return b, true
}

// Find looks a block up by id (depth-first) and returns it with its path.
func Find(root Blocks, id string) (*Block, Path, bool) {
	var found *Block
	var at Path
	Walk(root, func(b *Block, p Path) bool {
		if b.ID == id {
			found, at = b, p
			return false
		}
		return true
	})
	return found, at, found != nil
}

// Walk visits every block depth-first, parents before children, until fn returns false.
func Walk(root Blocks, fn func(b *Block, p Path) bool) {
	walk(root, Path{}, fn)
}

func walk(seq Blocks, parent Path, fn func(*Block, Path) bool) bool {
	for i, b := range seq {
		p := parent.Child(i)
		if !fn(b, p) {
			return false
		}
		if !walk(b.Blocks, p, fn) {
			return false
		}
	}
	return true
}

// Count returns the total number of blocks in the tree.
func Count(root Blocks) int {
	var n int
	Walk(root, func(*Block, Path) bool {
		n++
		return true
	})
	return n
}

// IDs returns every block id in depth-first order.
func IDs(root Blocks) []string {
	ids := make([]string, 0)
	Walk(root, func(b *Block, _ Path) bool {
		ids = append(ids, b.ID)
		return true
	})
	return ids
}

func idSet(root Blocks) map[string]bool {
	set := make(map[string]bool)
	Walk(root, func(b *Block, _ Path) bool {
		set[b.ID] = true
		return true
	})
	return set
}

// Relevel sets every block's Level to its depth.
func Relevel(root Blocks) {
	Walk(root, func(b *Block, p Path) bool {
		b.Level = p.depth()
		return true
	})
}

func relevel(b *Block, level int) {
	b.Level = level
	for _, c := range b.Blocks {
		relevel(c, level+1)
	}
}

// Validate checks the tree invariants: ids are set and unique, types are known,
// and only nesting-capable blocks hold children.
func Validate(root Blocks) error {
	return validate(root, make(map[string]bool))
}

func validate(root Blocks, seen map[string]bool) error {
	var err error
	Walk(root, func(b *Block, p Path) bool {
		switch {
		case b == nil:
			err = errors.Wrapf(ErrPathNotFound, "nil block at %q", p.String())
		case b.ID == "":
			err = errors.Wrapf(ErrMissingID, "block at %q", p.String())
		case seen[b.ID]:
			err = errors.Wrapf(ErrDuplicateID, "block %q", b.ID)
		case !b.Type.Valid():
			err = errors.Wrapf(ErrUnknownType, "block %q has type %q", b.ID, b.Type)
		case b.AllowNesting != b.Type.AllowsNesting():
			err = errors.Wrapf(ErrNestingViolation, "block %q: allowNesting does not match type %q", b.ID, b.Type)
		case !b.AllowNesting && len(b.Blocks) > 0:
			err = errors.Wrapf(ErrNestingViolation, "block %q", b.ID)
		}
		if err != nil {
			return false
		}
		seen[b.ID] = true
		return true
	})
	return err
}
