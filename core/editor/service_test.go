package editor

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

var (
	owner    = page.Actor{ID: "u1", Username: "owner"}
	stranger = page.Actor{ID: "u2", Username: "stranger"}
	admin    = page.Actor{ID: "u3", Username: "admin", IsAdmin: true}
)

type nopMail struct{}

func (nopMail) SendMessages(...*core.EmailMessage) {}

type serviceFixture struct {
	svc    Service
	pages  page.Service
	drafts *memDrafts
	doc    page.Document
	now    time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	db := inmemdb.Open()
	pages := page.NewService(nil, inmemdb.NewDocumentRepository(db), inmemdb.NewRevisionRepository(db), nopMail{}, testLogger{})
	doc, err := pages.Create(ctx, page.NewDocument{
		Kind:   page.KindPage,
		Title:  "Intro",
		Slug:   "intro",
		Blocks: tree(container("c1", text("t1"), text("t2")), text("t3")),
	}, owner)
	require.NoError(t, err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	page.InitValidators(validate, translator)

	f := &serviceFixture{
		pages:  pages,
		drafts: newMemDrafts(),
		doc:    doc,
		now:    time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc, err = NewService(
		Options{MaxHistory: 10, SessionTTL: 30 * time.Minute, NewID: counterIDs("b"), Now: func() time.Time { return f.now }},
		loadPalette(t),
		pages,
		f.drafts,
		validate,
		testLogger{},
	)
	require.NoError(t, err)
	return f
}

func TestNewService_requiresDependencies(t *testing.T) {
	_, err := NewService(Options{}, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestService_Open(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	sess, state, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, f.doc.ID, sess.DocumentID)
	assert.Equal(t, 1, sess.BaseVersion)
	assert.False(t, sess.RestoredDraft)
	assert.Equal(t, []string{"c1", "t1", "t2", "t3"}, blocktree.IDs(state.Blocks))
	assert.Equal(t, "intro", state.Settings.Slug)
	assert.Equal(t, blocktree.Desktop, state.CurrentBreakpoint)

	again, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID, "one session per user and document")

	_, _, err = f.svc.Open(ctx, f.doc.ID, stranger)
	assert.Equal(t, ErrForbidden, err)

	other, _, err := f.svc.Open(ctx, f.doc.ID, admin)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)

	_, _, err = f.svc.Open(ctx, "missing", owner)
	assert.Equal(t, page.ErrNotFound, errors.Cause(err))
}

func TestService_Dispatch(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, stranger, DeleteBlock{ID: "t3"})
	assert.Equal(t, ErrSessionNotFound, err, "sessions are private")

	state, err := f.svc.Dispatch(ctx, sess.ID, owner, SelectBlock{ID: strPtr("t1")})
	require.NoError(t, err)
	assert.Equal(t, "t1", *state.SelectedBlock)
	assert.Equal(t, 0, f.drafts.puts, "selection is not autosaved")

	state, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "t3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "t1", "t2"}, blocktree.IDs(state.Blocks))
	require.True(t, f.drafts.has(f.doc.ID, owner.ID))

	draft, err := f.drafts.GetDraft(ctx, f.doc.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, draft.BaseVersion)
	assert.Equal(t, []string{"c1", "t1", "t2"}, blocktree.IDs(draft.Blocks))

	_, err = f.svc.Dispatch(ctx, sess.ID, owner, MoveBlock{From: "0", To: "0-0"})
	assert.Equal(t, blocktree.ErrCyclicMove, errors.Cause(err))

	// the document itself is untouched until saved
	doc, err := f.pages.GetByID(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Len(t, doc.Blocks, 2)
}

func TestService_Save(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, owner, MoveBlock{From: "1", To: "0-0"})
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, sess.ID, owner, UpdateSettings{Settings: Settings{Title: " Welcome ", Slug: "welcome", Tags: []string{"News"}}})
	require.NoError(t, err)

	doc, err := f.svc.Save(ctx, sess.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, "Welcome", doc.Title)
	assert.Equal(t, "welcome", doc.Slug)
	assert.Equal(t, []string{"news"}, doc.Tags)
	assert.Equal(t, []string{"c1", "t3", "t1", "t2"}, blocktree.IDs(doc.Blocks))
	assert.Equal(t, 1, doc.Blocks[0].Blocks[0].Level)
	assert.False(t, f.drafts.has(f.doc.ID, owner.ID), "saving drops the draft")

	revs, err := f.pages.Revisions(ctx, f.doc.ID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 2, revs[0].Version)

	// a second save builds on the new version
	_, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "t1"})
	require.NoError(t, err)
	doc, err = f.svc.Save(ctx, sess.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Version)
}

func TestService_SaveConflict(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)

	_, err = f.pages.Update(ctx, f.doc.ID, page.UpdateDocument{Title: "Elsewhere", Slug: "intro", Version: 1}, admin)
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "t3"})
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, sess.ID, owner)
	assert.Equal(t, page.ErrVersionConflict, errors.Cause(err))
	assert.True(t, f.drafts.has(f.doc.ID, owner.ID), "the draft survives a failed save")
}

func TestService_SaveValidates(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, owner, UpdateSettings{Settings: Settings{Title: "T", Slug: "Not a slug!"}})
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, sess.ID, owner)
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs), "got %v", err)
}

func TestService_draftsSurviveSessions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "c1"})
	require.NoError(t, err)

	// idle sessions are swept, their drafts kept
	f.now = f.now.Add(time.Hour)
	assert.Equal(t, 1, f.svc.Sweep(f.now))
	_, _, err = f.svc.State(sess.ID, owner)
	assert.Equal(t, ErrSessionNotFound, err)

	reopened, state, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, reopened.ID)
	assert.True(t, reopened.RestoredDraft)
	assert.Equal(t, []string{"t3"}, blocktree.IDs(state.Blocks))

	// reset goes back to the document and forgets the draft
	state, err = f.svc.Dispatch(ctx, reopened.ID, owner, Reset{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, blocktree.IDs(state.Blocks), "reset returns to the state the session opened with")
	assert.False(t, f.drafts.has(f.doc.ID, owner.ID))
}

func TestService_SweepSparesSessionsUsedMeanwhile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)

	svc := f.svc.(*service)
	s, ok := svc.ownedSession(f.doc.ID, owner.ID)
	require.True(t, ok)

	// the sweeper saw the session idle, then the owner edited before it was ended
	deadline := f.now.Add(time.Minute)
	f.now = f.now.Add(2 * time.Minute)
	_, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "t3"})
	require.NoError(t, err)

	assert.False(t, svc.endIdle(s, deadline))
	_, state, err := f.svc.State(sess.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "t1", "t2"}, blocktree.IDs(state.Blocks))

	assert.Equal(t, 0, f.svc.Sweep(f.now.Add(10*time.Minute)))
	assert.Equal(t, 1, f.svc.Sweep(f.now.Add(time.Hour)))
	assert.False(t, svc.endIdle(s, f.now.Add(2*time.Hour)), "already ended")
}

func TestService_DispatchNoOp(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)

	updates, unsubscribe, err := f.svc.Subscribe(sess.ID, owner)
	require.NoError(t, err)
	defer unsubscribe()
	<-updates

	state, err := f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "t1", "t2", "t3"}, blocktree.IDs(state.Blocks))
	assert.Equal(t, 0, f.drafts.puts, "nothing to autosave")
	select {
	case <-updates:
		t.Fatal("a no-op must not reach the preview")
	default:
	}

	_, err = f.svc.Dispatch(ctx, sess.ID, owner, Undo{})
	assert.Equal(t, ErrNothingToUndo, err)
}

func TestService_staleDraft(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.drafts.PutDraft(ctx, Draft{DocumentID: f.doc.ID, UserID: owner.ID, BaseVersion: 0, Blocks: tree(text("old"))}))

	sess, state, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)
	assert.False(t, sess.RestoredDraft)
	assert.Equal(t, []string{"c1", "t1", "t2", "t3"}, blocktree.IDs(state.Blocks))
	assert.False(t, f.drafts.has(f.doc.ID, owner.ID))
}

func TestService_Close(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, ErrSessionNotFound, f.svc.Close(ctx, sess.ID, stranger))
	require.NoError(t, f.svc.Close(ctx, sess.ID, owner))
	assert.False(t, f.drafts.has(f.doc.ID, owner.ID))

	_, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "t3"})
	assert.Equal(t, ErrSessionNotFound, err)
	assert.Equal(t, ErrSessionNotFound, f.svc.Close(ctx, sess.ID, owner))
}

func TestService_Subscribe(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sess, _, err := f.svc.Open(ctx, f.doc.ID, owner)
	require.NoError(t, err)

	_, _, err = f.svc.Subscribe(sess.ID, stranger)
	assert.Equal(t, ErrSessionNotFound, err)

	updates, unsubscribe, err := f.svc.Subscribe(sess.ID, owner)
	require.NoError(t, err)
	defer unsubscribe()

	first := <-updates
	assert.Len(t, first.Blocks, 2)

	// only the latest unread state is kept
	_, err = f.svc.Dispatch(ctx, sess.ID, owner, SetPreview{InPreview: true})
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, sess.ID, owner, DeleteBlock{ID: "t3"})
	require.NoError(t, err)
	latest := <-updates
	assert.True(t, latest.InPreview)
	assert.Len(t, latest.Blocks, 1)

	require.NoError(t, f.svc.Close(ctx, sess.ID, owner))
	_, open := <-updates
	assert.False(t, open, "closing the session hangs up")
	unsubscribe() // safe after close
}
