package editor

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/blocktree"
)

// Reduce applies a to s and returns the next state. It never modifies s: the tree
// is cloned before any in-place mutator runs. On error the returned state is s.
// Undo, Redo and Reset need the history and are handled by Store.Dispatch.
func Reduce(s State, a Action) (State, error) {
	switch a := a.(type) {
	case AddBlock:
		return addBlock(s, a)
	case SelectBlock:
		return selectBlock(s, a)
	case MoveBlock:
		return moveBlock(s, a)
	case DeleteBlock:
		return deleteBlock(s, a), nil
	case DuplicateBlock:
		return duplicateBlock(s, a)
	case UpdateBlock:
		return updateBlock(s, a)
	case SetBreakpoint:
		if !a.Breakpoint.Valid() {
			return s, errors.Wrapf(ErrBadBreakpoint, "%q", a.Breakpoint)
		}
		next := s.Clone()
		next.CurrentBreakpoint = a.Breakpoint
		return next, nil
	case SetPreview:
		next := s.Clone()
		next.InPreview = a.InPreview
		return next, nil
	case UpdateSettings:
		next := s.Clone()
		next.Settings = a.Settings.clone()
		return next, nil
	case Undo, Redo, Reset:
		return s, errors.Wrapf(ErrStoreAction, "%q", a.Type())
	case nil:
		return s, ErrInvalidAction
	default:
		return s, errors.Wrapf(ErrUnknownAction, "%q", a.Type())
	}
}

// insertionParent picks where AddBlock appends when no path is given.
func insertionParent(s State) blocktree.Path {
	if b, p, ok := s.Selected(); ok && b.AllowNesting {
		return p
	}
	return blocktree.Path{}
}

func addBlock(s State, a AddBlock) (State, error) {
	if a.ID == "" {
		return s, blocktree.ErrMissingID
	}
	next := s.Clone()
	b := a.Descriptor.NewBlock(a.ID)

	if a.Path != nil {
		p, err := blocktree.ParsePath(*a.Path)
		if err != nil {
			return s, err
		}
		if err = blocktree.InsertAt(&next.Blocks, p, b); err != nil {
			return s, err
		}
	} else if _, err := blocktree.Append(&next.Blocks, insertionParent(s), b); err != nil {
		return s, err
	}

	next.SelectedBlock = strPtr(b.ID)
	return next, nil
}

func selectBlock(s State, a SelectBlock) (State, error) {
	next := s.Clone()
	if a.ID == nil {
		next.SelectedBlock = nil
		return next, nil
	}
	if _, _, ok := blocktree.Find(s.Blocks, *a.ID); !ok {
		return s, errors.Wrapf(blocktree.ErrIDNotFound, "%q", *a.ID)
	}
	next.SelectedBlock = strPtr(*a.ID)
	return next, nil
}

func moveBlock(s State, a MoveBlock) (State, error) {
	src, err := blocktree.ParsePath(a.From)
	if err != nil {
		return s, err
	}
	dst, err := blocktree.ParsePath(a.To)
	if err != nil {
		return s, err
	}

	blocks, err := blocktree.Move(s.Blocks, src, dst)
	if err != nil {
		return s, err
	}
	next := s.Clone()
	next.Blocks = blocks
	return next, nil
}

// deleteBlock tolerates unknown ids: the state comes back unchanged.
func deleteBlock(s State, a DeleteBlock) State {
	target, _, ok := blocktree.Find(s.Blocks, a.ID)
	if !ok {
		return s
	}

	next := s.Clone()
	if sel := next.SelectedBlock; sel != nil {
		if _, _, inside := blocktree.Find(blocktree.Blocks{target}, *sel); inside {
			next.SelectedBlock = nil
		}
	}
	blocktree.Delete(&next.Blocks, a.ID)
	return next
}

func duplicateBlock(s State, a DuplicateBlock) (State, error) {
	next := s.Clone()
	clone, ok := blocktree.Duplicate(&next.Blocks, a.ID, a.NewID)
	if !ok {
		return s, errors.Wrapf(blocktree.ErrIDNotFound, "%q", a.ID)
	}
	next.SelectedBlock = strPtr(clone.ID)
	return next, nil
}

func updateBlock(s State, a UpdateBlock) (State, error) {
	next := s.Clone()
	b, _, ok := blocktree.Find(next.Blocks, a.ID)
	if !ok {
		return s, errors.Wrapf(blocktree.ErrIDNotFound, "%q", a.ID)
	}
	b.Content = merge(b.Content, a.Content)
	b.Styles = merge(b.Styles, a.Styles)
	return next, nil
}

func merge(dst, patch blocktree.Props) blocktree.Props {
	if len(patch) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(blocktree.Props, len(patch))
	}
	for k, v := range patch.Clone() {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	if len(dst) == 0 {
		return nil
	}
	return dst
}
