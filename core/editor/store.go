package editor

import (
	"github.com/trezcool/masomo/core/blocktree"
)

// Store owns the state of one editing session; every change goes through Dispatch.
// A Store is not safe for concurrent use: callers serialize dispatches (see Service).
type Store struct {
	initial State
	state   State
	history *History
	newID   blocktree.IDFunc
	seq     uint64 // bumped on every state change
	dirty   bool   // document changed since the last MarkSaved
}

// NewStore returns a store starting at initial. newID generates block ids (blocktree.NewID when nil).
func NewStore(initial State, maxHistory int, newID blocktree.IDFunc) *Store {
	if newID == nil {
		newID = blocktree.NewID
	}
	return &Store{
		initial: initial.Clone(),
		state:   initial.Clone(),
		history: NewHistory(maxHistory),
		newID:   newID,
	}
}

// State returns a copy of the current state.
func (st *Store) State() State { return st.state.Clone() }

func (st *Store) Seq() uint64   { return st.seq }
func (st *Store) Dirty() bool   { return st.dirty }
func (st *Store) MarkSaved()    { st.dirty = false }
func (st *Store) CanUndo() bool { return st.history.CanUndo() }
func (st *Store) CanRedo() bool { return st.history.CanRedo() }

// Dispatch applies a and returns the new state. A failed action leaves the state untouched.
func (st *Store) Dispatch(a Action) (State, error) {
	switch a.(type) {
	case Undo:
		prev, ok := st.history.Undo(st.state)
		if !ok {
			return st.State(), ErrNothingToUndo
		}
		st.restore(prev)
		return st.State(), nil
	case Redo:
		next, ok := st.history.Redo(st.state)
		if !ok {
			return st.State(), ErrNothingToRedo
		}
		st.restore(next)
		return st.State(), nil
	case Reset:
		st.Reset()
		return st.State(), nil
	}

	a = st.prepare(a)
	next, err := Reduce(st.state, a)
	if err != nil {
		return st.State(), err
	}
	docChanged := !sameDocument(st.state, next)
	if !docChanged && sameView(st.state, next) {
		// tolerated no-op, e.g. deleting an unknown id: nothing to record or broadcast
		return st.State(), nil
	}
	if docChanged && records(a) {
		st.history.Record(st.state)
		st.dirty = true
	}
	st.state = next
	st.seq++
	return st.State(), nil
}

// Reset clears the state back to its initial values and forgets the history.
func (st *Store) Reset() {
	st.state = st.initial.Clone()
	st.history.Clear()
	st.dirty = false
	st.seq++
}

// prepare fills in what the pure reducer cannot produce itself.
func (st *Store) prepare(a Action) Action {
	switch v := a.(type) {
	case AddBlock:
		if v.ID == "" {
			v.ID = st.freshID()
		}
		return v
	case DuplicateBlock:
		if v.NewID == nil {
			v.NewID = st.newID
		}
		return v
	}
	return a
}

func (st *Store) freshID() string {
	for {
		id := st.newID()
		if _, _, taken := blocktree.Find(st.state.Blocks, id); id != "" && !taken {
			return id
		}
	}
}

// restore swaps the document parts of s in, keeping the view settings of the current state.
func (st *Store) restore(s State) {
	next := st.state.Clone()
	next.Blocks = s.Blocks
	next.Settings = s.Settings
	if next.SelectedBlock != nil {
		if _, _, ok := blocktree.Find(next.Blocks, *next.SelectedBlock); !ok {
			next.SelectedBlock = nil
		}
	}
	st.state = next
	st.dirty = true
	st.seq++
}
