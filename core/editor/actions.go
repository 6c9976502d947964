package editor

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/blocktree"
)

type ActionType string

const (
	ActionAddBlock       ActionType = "add_block"
	ActionSelectBlock    ActionType = "select_block"
	ActionMoveBlock      ActionType = "move_block"
	ActionDeleteBlock    ActionType = "delete_block"
	ActionDuplicateBlock ActionType = "duplicate_block"
	ActionUpdateBlock    ActionType = "update_block"
	ActionSetBreakpoint  ActionType = "set_breakpoint"
	ActionSetPreview     ActionType = "set_preview"
	ActionUpdateSettings ActionType = "update_settings"
	ActionUndo           ActionType = "undo"
	ActionRedo           ActionType = "redo"
	ActionReset          ActionType = "reset"
)

var (
	// errors
	ErrUnknownAction = errors.New("unknown editor action")
	ErrInvalidAction = errors.New("invalid editor action")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrBadBreakpoint = errors.New("unknown breakpoint")
	ErrStoreAction   = errors.New("action is handled by the store, not the reducer")
)

// Action is a change request dispatched to a Store.
type Action interface {
	Type() ActionType
}

type (
	// AddBlock inserts a new block built from Descriptor.
	// Path is the insertion point; when nil the block goes to the end of the
	// selected nesting block, or to the end of the root.
	AddBlock struct {
		Descriptor Descriptor `json:"-"`
		BlockType  string     `json:"block_type"`
		ID         string     `json:"id,omitempty"`
		Path       *string    `json:"path,omitempty"`
	}

	// SelectBlock moves the selection cursor; a nil ID clears it.
	SelectBlock struct {
		ID *string `json:"id"`
	}

	MoveBlock struct {
		From string `json:"from"`
		To   string `json:"to"`
	}

	DeleteBlock struct {
		ID string `json:"id"`
	}

	DuplicateBlock struct {
		ID    string           `json:"id"`
		NewID blocktree.IDFunc `json:"-"`
	}

	// UpdateBlock merges Content and Styles into the block payloads. A null value removes the key.
	UpdateBlock struct {
		ID      string          `json:"id"`
		Content blocktree.Props `json:"content"`
		Styles  blocktree.Props `json:"styles"`
	}

	SetBreakpoint struct {
		Breakpoint blocktree.Breakpoint `json:"breakpoint"`
	}

	SetPreview struct {
		InPreview bool `json:"in_preview"`
	}

	UpdateSettings struct {
		Settings Settings `json:"settings"`
	}

	Undo  struct{}
	Redo  struct{}
	Reset struct{}
)

func (AddBlock) Type() ActionType       { return ActionAddBlock }
func (SelectBlock) Type() ActionType    { return ActionSelectBlock }
func (MoveBlock) Type() ActionType      { return ActionMoveBlock }
func (DeleteBlock) Type() ActionType    { return ActionDeleteBlock }
func (DuplicateBlock) Type() ActionType { return ActionDuplicateBlock }
func (UpdateBlock) Type() ActionType    { return ActionUpdateBlock }
func (SetBreakpoint) Type() ActionType  { return ActionSetBreakpoint }
func (SetPreview) Type() ActionType     { return ActionSetPreview }
func (UpdateSettings) Type() ActionType { return ActionUpdateSettings }
func (Undo) Type() ActionType           { return ActionUndo }
func (Redo) Type() ActionType           { return ActionRedo }
func (Reset) Type() ActionType          { return ActionReset }

// records reports whether an action changes the document and so belongs in the undo history.
func records(a Action) bool {
	switch a.Type() {
	case ActionAddBlock, ActionMoveBlock, ActionDeleteBlock, ActionDuplicateBlock,
		ActionUpdateBlock, ActionUpdateSettings:
		return true
	}
	return false
}

// DecodeAction decodes a JSON action of the form {"type": "...", ...}.
// add_block descriptors are looked up in palette.
func DecodeAction(data []byte, palette *Palette) (Action, error) {
	var envelope struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrap(ErrInvalidAction, err.Error())
	}

	var a Action
	switch envelope.Type {
	case ActionAddBlock:
		var add AddBlock
		if err := json.Unmarshal(data, &add); err != nil {
			return nil, errors.Wrap(ErrInvalidAction, err.Error())
		}
		d, err := palette.Descriptor(blocktree.Type(add.BlockType))
		if err != nil {
			return nil, err
		}
		add.Descriptor = d
		return add, nil
	case ActionSelectBlock:
		a = new(SelectBlock)
	case ActionMoveBlock:
		a = new(MoveBlock)
	case ActionDeleteBlock:
		a = new(DeleteBlock)
	case ActionDuplicateBlock:
		a = new(DuplicateBlock)
	case ActionUpdateBlock:
		a = new(UpdateBlock)
	case ActionSetBreakpoint:
		a = new(SetBreakpoint)
	case ActionSetPreview:
		a = new(SetPreview)
	case ActionUpdateSettings:
		a = new(UpdateSettings)
	case ActionUndo:
		return Undo{}, nil
	case ActionRedo:
		return Redo{}, nil
	case ActionReset:
		return Reset{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownAction, "%q", envelope.Type)
	}

	if err := json.Unmarshal(data, a); err != nil {
		return nil, errors.Wrap(ErrInvalidAction, err.Error())
	}
	return deref(a), nil
}

// deref turns the decoded pointer back into the value form dispatched everywhere else.
func deref(a Action) Action {
	switch v := a.(type) {
	case *SelectBlock:
		return *v
	case *MoveBlock:
		return *v
	case *DeleteBlock:
		return *v
	case *DuplicateBlock:
		return *v
	case *UpdateBlock:
		return *v
	case *SetBreakpoint:
		return *v
	case *SetPreview:
		return *v
	case *UpdateSettings:
		return *v
	}
	return a
}
