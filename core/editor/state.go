// Package editor hosts the state of a block editing session: the tree being edited,
// the selection cursor and the view settings, changed only through actions.
package editor

import (
	"bytes"
	"encoding/json"

	"github.com/trezcool/masomo/core/blocktree"
)

// Settings holds the document metadata edited from the settings panel.
type Settings struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	CoverImage  string   `json:"cover_image"`
	Tags        []string `json:"tags"`
}

func (s Settings) clone() Settings {
	if s.Tags != nil {
		s.Tags = append([]string(nil), s.Tags...)
	}
	return s
}

// State is the whole editor state of one session.
type State struct {
	DocumentID        string               `json:"document_id"`
	Blocks            blocktree.Blocks     `json:"blocks"`
	SelectedBlock     *string              `json:"selected_block"`
	CurrentBreakpoint blocktree.Breakpoint `json:"current_breakpoint"`
	InPreview         bool                 `json:"in_preview"`
	Settings          Settings             `json:"settings"`
}

// NewState returns the initial state for editing the given tree.
func NewState(documentID string, blocks blocktree.Blocks, settings Settings) State {
	if blocks == nil {
		blocks = blocktree.Blocks{}
	}
	return State{
		DocumentID:        documentID,
		Blocks:            blocks,
		CurrentBreakpoint: blocktree.Desktop,
		Settings:          settings,
	}
}

// Clone returns a deep copy sharing nothing with s.
func (s State) Clone() State {
	cp := s
	cp.Blocks = s.Blocks.Clone()
	if cp.Blocks == nil {
		cp.Blocks = blocktree.Blocks{}
	}
	if s.SelectedBlock != nil {
		id := *s.SelectedBlock
		cp.SelectedBlock = &id
	}
	cp.Settings = s.Settings.clone()
	return cp
}

// Selected returns the selected block, if any.
func (s State) Selected() (*blocktree.Block, blocktree.Path, bool) {
	if s.SelectedBlock == nil {
		return nil, nil, false
	}
	return blocktree.Find(s.Blocks, *s.SelectedBlock)
}

// sameDocument reports whether a and b hold the same tree and settings.
// Trees are compared through their JSON form, where nil and empty child lists are alike.
func sameDocument(a, b State) bool {
	if !a.Settings.equal(b.Settings) {
		return false
	}
	ja, errA := json.Marshal(a.Blocks)
	jb, errB := json.Marshal(b.Blocks)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

// sameView reports whether a and b agree on the selection and view settings.
func sameView(a, b State) bool {
	if (a.SelectedBlock == nil) != (b.SelectedBlock == nil) {
		return false
	}
	if a.SelectedBlock != nil && *a.SelectedBlock != *b.SelectedBlock {
		return false
	}
	return a.CurrentBreakpoint == b.CurrentBreakpoint && a.InPreview == b.InPreview
}

func (s Settings) equal(o Settings) bool {
	if s.Title != o.Title || s.Slug != o.Slug || s.Description != o.Description || s.CoverImage != o.CoverImage ||
		len(s.Tags) != len(o.Tags) {
		return false
	}
	for i := range s.Tags {
		if s.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}

func strPtr(s string) *string { return &s }
