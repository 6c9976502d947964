package editor

// History keeps snapshots taken before each recorded mutation.
// The oldest snapshots are dropped once the limit is reached.
type History struct {
	limit int
	past  []State
	fut   []State
}

// NewHistory returns a history holding at most limit undo steps; limit <= 0 disables it.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Record pushes the state preceding a mutation and forgets the redo branch.
func (h *History) Record(prev State) {
	if h.limit <= 0 {
		return
	}
	if len(h.past) == h.limit {
		copy(h.past, h.past[1:])
		h.past = h.past[:len(h.past)-1]
	}
	h.past = append(h.past, prev)
	h.fut = nil
}

// Undo returns the state to go back to, saving current for Redo.
func (h *History) Undo(current State) (State, bool) {
	if len(h.past) == 0 {
		return current, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.fut = append(h.fut, current)
	return prev, true
}

func (h *History) Redo(current State) (State, bool) {
	if len(h.fut) == 0 {
		return current, false
	}
	next := h.fut[len(h.fut)-1]
	h.fut = h.fut[:len(h.fut)-1]
	h.past = append(h.past, current)
	return next, true
}

func (h *History) CanUndo() bool { return len(h.past) > 0 }
func (h *History) CanRedo() bool { return len(h.fut) > 0 }

func (h *History) Clear() {
	h.past = nil
	h.fut = nil
}
