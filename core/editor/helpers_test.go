package editor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/trezcool/masomo/core/blocktree"
	appfs "github.com/trezcool/masomo/fs"
)

func text(id string) *blocktree.Block {
	return blocktree.NewBlock(id, blocktree.TypeText, blocktree.Props{"text": id}, nil)
}

func container(id string, children ...*blocktree.Block) *blocktree.Block {
	b := blocktree.NewBlock(id, blocktree.TypeContainer, nil, nil)
	b.Blocks = append(b.Blocks, children...)
	return b
}

func tree(bs ...*blocktree.Block) blocktree.Blocks {
	root := blocktree.Blocks(bs)
	blocktree.Relevel(root)
	return root
}

func ids(seq blocktree.Blocks) []string {
	out := make([]string, 0, len(seq))
	for _, b := range seq {
		out = append(out, b.ID)
	}
	return out
}

func counterIDs(prefix string) blocktree.IDFunc {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func loadPalette(t *testing.T) *Palette {
	p, err := LoadPalette(appfs.FS)
	if err != nil {
		t.Fatalf("LoadPalette() error = %v", err)
	}
	return p
}

func addAction(t *testing.T, p *Palette, typ blocktree.Type, id string, path ...string) AddBlock {
	d, err := p.Descriptor(typ)
	if err != nil {
		t.Fatalf("Descriptor(%q) error = %v", typ, err)
	}
	a := AddBlock{Descriptor: d, BlockType: string(typ), ID: id}
	if len(path) > 0 {
		a.Path = &path[0]
	}
	return a
}

// sampleState: c1 [t1, t2], t3
func sampleState() State {
	return NewState("doc", tree(container("c1", text("t1"), text("t2")), text("t3")), Settings{Title: "Intro", Slug: "intro"})
}

type memDrafts struct {
	sync.Mutex
	drafts map[string]Draft
	puts   int
}

func newMemDrafts() *memDrafts { return &memDrafts{drafts: make(map[string]Draft)} }

func (m *memDrafts) GetDraft(_ context.Context, documentID, userID string) (Draft, error) {
	m.Lock()
	defer m.Unlock()
	d, ok := m.drafts[ownerKey(documentID, userID)]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

func (m *memDrafts) PutDraft(_ context.Context, d Draft) error {
	m.Lock()
	defer m.Unlock()
	m.puts++
	d.Blocks = d.Blocks.Clone()
	m.drafts[ownerKey(d.DocumentID, d.UserID)] = d
	return nil
}

func (m *memDrafts) DeleteDraft(_ context.Context, documentID, userID string) error {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.drafts[ownerKey(documentID, userID)]; !ok {
		return ErrDraftNotFound
	}
	delete(m.drafts, ownerKey(documentID, userID))
	return nil
}

func (m *memDrafts) has(documentID, userID string) bool {
	m.Lock()
	defer m.Unlock()
	_, ok := m.drafts[ownerKey(documentID, userID)]
	return ok
}

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}
