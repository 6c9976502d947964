package editor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/blocktree"
)

var ErrDraftNotFound = errors.New("draft not found")

// Draft is the unsaved work of one user on one document.
type Draft struct {
	DocumentID  string           `json:"document_id"`
	UserID      string           `json:"user_id"`
	BaseVersion int              `json:"base_version"` // document version the draft started from
	Blocks      blocktree.Blocks `json:"blocks"`
	Settings    Settings         `json:"settings"`
	SavedAt     time.Time        `json:"saved_at"` // UTC
}

// DraftStore persists drafts between sessions.
type DraftStore interface {
	GetDraft(ctx context.Context, documentID, userID string) (Draft, error)
	PutDraft(ctx context.Context, d Draft) error
	DeleteDraft(ctx context.Context, documentID, userID string) error
}
