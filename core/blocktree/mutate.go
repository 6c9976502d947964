package blocktree

import "github.com/pkg/errors"

// Mutation conventions:
//   - InsertAt, Append, Delete and Duplicate edit the tree they are given in place.
//     Callers that need the previous tree (e.g. the editor store) clone before calling.
//   - Move never touches its input: it works on a clone and returns it.
// Every mutator leaves the tree untouched when it fails.

// sequence returns the child sequence addressed by parent, Base being the root itself.
// Every block on the way must exist and allow nesting.
func sequence(root *Blocks, parent Path) (*Blocks, error) {
	seq := root
	for _, i := range parent {
		if i < 0 || i >= len(*seq) {
			return nil, ErrPathNotFound
		}
		b := (*seq)[i]
		if !b.AllowNesting {
			return nil, ErrNestingViolation
		}
		seq = &b.Blocks
	}
	return seq, nil
}

func insertAt(seq Blocks, i int, b *Block) Blocks {
	seq = append(seq, nil)
	copy(seq[i+1:], seq[i:])
	seq[i] = b
	return seq
}

func removeAt(seq Blocks, i int) (Blocks, *Block) {
	b := seq[i]
	copy(seq[i:], seq[i+1:])
	seq[len(seq)-1] = nil
	return seq[:len(seq)-1], b
}

// checkInsertable makes sure b (with its subtree) is well-formed and shares no id with root.
func checkInsertable(root Blocks, b *Block) error {
	if b == nil {
		return errors.Wrap(ErrPathNotFound, "nil block")
	}
	return validate(Blocks{b}, idSet(root))
}

// InsertAt inserts b at p. The last segment of p is the position among the siblings
// (0..len, len appends); the preceding segments address the parent container.
func InsertAt(root *Blocks, p Path, b *Block) error {
	if p.IsBase() {
		return ErrInvalidPath
	}
	seq, err := sequence(root, p.Parent())
	if err != nil {
		return err
	}
	idx := p.Index()
	if idx < 0 || idx > len(*seq) {
		return ErrIndexOutOfRange
	}
	if err = checkInsertable(*root, b); err != nil {
		return err
	}
	relevel(b, p.depth())
	*seq = insertAt(*seq, idx, b)
	return nil
}

// Append inserts b as the last child of the container at parent (Base: the root).
// It returns the path b was inserted at.
func Append(root *Blocks, parent Path, b *Block) (Path, error) {
	seq, err := sequence(root, parent)
	if err != nil {
		return nil, err
	}
	p := parent.Child(len(*seq))
	if err = InsertAt(root, p, b); err != nil {
		return nil, err
	}
	return p, nil
}

// Move relocates the block at src, with its subtree, to dst and returns the new tree.
// Both paths are read against root as it is before the move. When src and dst share
// a parent and src comes first, dst is shifted left by one to account for the removal,
// so moving the first of [A B C] to 3 gives [B C A] and to 2 gives [B A C].
// root itself is never modified; on failure the returned tree is nil.
func Move(root Blocks, src, dst Path) (Blocks, error) {
	if src.IsBase() || dst.IsBase() {
		return nil, ErrInvalidPath
	}
	if src.Contains(dst) {
		return nil, ErrCyclicMove
	}

	tree := root.Clone()
	srcSeq, err := sequence(&tree, src.Parent())
	if err != nil {
		return nil, err
	}
	dstSeq, err := sequence(&tree, dst.Parent())
	if err != nil {
		return nil, err
	}

	si, di := src.Index(), dst.Index()
	if si < 0 || si >= len(*srcSeq) {
		return nil, ErrPathNotFound
	}
	if srcSeq == dstSeq && si < di {
		di--
	}
	// bounds are checked before removing so that a failed move costs nothing but the clone
	dstLen := len(*dstSeq)
	if srcSeq == dstSeq {
		dstLen--
	}
	if di < 0 || di > dstLen {
		return nil, ErrIndexOutOfRange
	}

	var moved *Block
	*srcSeq, moved = removeAt(*srcSeq, si)
	relevel(moved, dst.depth())
	*dstSeq = insertAt(*dstSeq, di, moved)
	return tree, nil
}

// locate returns the sequence holding the block with the given id and its index there.
func locate(seq *Blocks, id string) (*Blocks, int, bool) {
	for i, b := range *seq {
		if b.ID == id {
			return seq, i, true
		}
		if s, j, ok := locate(&b.Blocks, id); ok {
			return s, j, true
		}
	}
	return nil, 0, false
}

// Delete removes the block with the given id and its whole subtree.
// Deleting an id that is not in the tree is a no-op and returns false.
func Delete(root *Blocks, id string) bool {
	seq, i, ok := locate(root, id)
	if !ok {
		return false
	}
	*seq, _ = removeAt(*seq, i)
	return true
}

// Duplicate clones the block with the given id, gives the clone and each of its
// descendants a fresh id from newID (NewID when nil), and inserts the clone right
// after the original. It returns the clone, or false when id is not in the tree.
func Duplicate(root *Blocks, id string, newID IDFunc) (*Block, bool) {
	seq, i, ok := locate(root, id)
	if !ok {
		return nil, false
	}
	if newID == nil {
		newID = NewID
	}
	clone := (*seq)[i].Clone()
	reassignIDs(clone, idSet(*root), newID)
	*seq = insertAt(*seq, i+1, clone)
	return clone, true
}

func reassignIDs(b *Block, used map[string]bool, newID IDFunc) {
	id := newID()
	for id == "" || used[id] {
		id = newID()
	}
	used[id] = true
	b.ID = id
	for _, c := range b.Blocks {
		reassignIDs(c, used, newID)
	}
}
