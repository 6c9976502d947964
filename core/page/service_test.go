package page_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
	emailsvc "github.com/trezcool/masomo/services/email"
)

func TestService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := blocktree.NewBlock("c", blocktree.TypeContainer, nil, nil)
	c.Blocks = blocktree.Blocks{text("t", "hi")}
	doc := env.create(t, "Intro", ada, c)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, ada.ID, doc.OwnerID)
	assert.Equal(t, 1, doc.Blocks[0].Blocks[0].Level, "levels are recomputed")
	assert.Equal(t, []string{}, doc.Tags)
	assert.False(t, doc.Published)

	revs, err := env.svc.Revisions(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, 1, revs[0].Version)
	assert.Equal(t, "Intro", revs[0].Title)
}

func TestService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.create(t, "Intro", ada, text("a", "one"))

	desc := "about"
	updated, err := env.svc.Update(ctx, doc.ID, page.UpdateDocument{
		Title:       "Intro 2",
		Slug:        doc.Slug,
		Description: &desc,
		Blocks:      blocktree.Blocks{text("a", "one"), text("b", "two")},
		Version:     1,
	}, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "about", updated.Description)
	assert.Len(t, updated.Blocks, 2)
	assert.False(t, updated.UpdatedAt.Before(doc.UpdatedAt))

	// stale version
	_, err = env.svc.Update(ctx, doc.ID, page.UpdateDocument{Title: "x", Slug: doc.Slug, Version: 1}, ada)
	assert.Equal(t, page.ErrVersionConflict, errors.Cause(err))

	// version 0 skips the check
	updated, err = env.svc.Update(ctx, doc.ID, page.UpdateDocument{Title: "x", Slug: doc.Slug}, ada)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
	assert.Len(t, updated.Blocks, 2, "nil blocks keep the tree")

	rev, err := env.svc.GetRevision(ctx, doc.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, rev.AuthorID)

	_, err = env.svc.Update(ctx, "missing", page.UpdateDocument{}, ada)
	assert.Equal(t, page.ErrNotFound, errors.Cause(err))
}

func TestService_SaveTree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.create(t, "Intro", ada, text("a", "one"))

	_, err := env.svc.SaveTree(ctx, doc.ID, blocktree.Blocks{text("x", ""), text("x", "")}, 1, ada)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)

	saved, err := env.svc.SaveTree(ctx, doc.ID, blocktree.Blocks{text("b", "two")}, 1, ada)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, "b", saved.Blocks[0].ID)
	assert.Equal(t, "Intro", saved.Title)
}

func TestService_Revisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.create(t, "Intro", ada, text("a", "one"))

	_, err := env.svc.SaveTree(ctx, doc.ID, blocktree.Blocks{text("a", "one"), text("b", "two")}, 1, ada)
	require.NoError(t, err)
	_, err = env.svc.SaveTree(ctx, doc.ID, blocktree.Blocks{text("c", "three")}, 2, ada)
	require.NoError(t, err)

	revs, err := env.svc.Revisions(ctx, doc.ID)
	require.NoError(t, err)
	var versions []int
	for _, r := range revs {
		versions = append(versions, r.Version)
	}
	assert.Equal(t, []int{3, 2, 1}, versions, "newest first")

	diff, err := env.svc.DiffRevisions(ctx, doc.ID, 1, 2)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- version 1")
	assert.Contains(t, diff, "+++ version 2")
	assert.Contains(t, diff, `+      "text": "two"`)

	diff, err = env.svc.DiffRevisions(ctx, doc.ID, 2, 2)
	require.NoError(t, err)
	assert.Empty(t, diff)

	_, err = env.svc.DiffRevisions(ctx, doc.ID, 1, 9)
	assert.Equal(t, page.ErrRevisionNotFound, errors.Cause(err))

	restored, err := env.svc.RestoreRevision(ctx, doc.ID, 1, bob)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.Version, "restoring moves forward")
	assert.Equal(t, []string{"a"}, blocktree.IDs(restored.Blocks))

	_, err = env.svc.Revisions(ctx, "missing")
	assert.Equal(t, page.ErrNotFound, errors.Cause(err))
}

func TestService_Publish(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.create(t, "Intro", ada, text("a", "one"))

	_, err := env.svc.GetPublishedBySlug(ctx, "intro")
	assert.Equal(t, page.ErrNotFound, errors.Cause(err))

	before := time.Now().UTC()
	pub, err := env.svc.Publish(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, pub.Published)
	assert.False(t, pub.PublishedAt.Before(before))
	assert.Equal(t, 1, pub.Version, "publishing does not bump the version")

	sent := emailsvc.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, ada.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "http://front.test/pages/intro")
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "intro.html", sent[0].Attachments[0].Filename)
	snapshot, err := base64.StdEncoding.DecodeString(sent[0].Attachments[0].Content.String())
	require.NoError(t, err)
	assert.Contains(t, string(snapshot), `data-block-id="a"`)

	got, err := env.svc.GetPublishedBySlug(ctx, " INTRO ")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = env.svc.Publish(ctx, doc.ID)
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = env.svc.Unpublish(ctx, doc.ID)
	require.NoError(t, err)
	_, err = env.svc.Unpublish(ctx, doc.ID)
	assert.True(t, errors.As(err, &verr))

	// no owner email, no mail
	other := env.create(t, "Quiet", bob)
	emailsvc.ResetSentMessages()
	_, err = env.svc.Publish(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, emailsvc.GetSentMessages())
	assert.Empty(t, env.logger.errors)
}

func TestService_Query(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "Alpha", ada)
	env.create(t, "Beta", bob)
	c := env.create(t, "Gamma notes", ada)
	_, err := env.svc.Publish(ctx, c.ID)
	require.NoError(t, err)

	docs, err := env.svc.Query(ctx, &page.QueryFilter{OwnerID: ada.ID}, []core.DBOrdering{{Field: "title", Ascending: true}, {Field: "bogus"}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a.ID, docs[0].ID)

	published := true
	docs, err = env.svc.Query(ctx, &page.QueryFilter{Published: &published}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, c.ID, docs[0].ID)

	docs, err = env.svc.Query(ctx, &page.QueryFilter{Search: "NOTES"}, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = env.svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "Alpha", ada)
	b := env.create(t, "Beta", ada)

	require.NoError(t, env.svc.Delete(ctx))
	require.NoError(t, env.svc.Delete(ctx, a.ID, b.ID, "missing"))

	_, err := env.svc.GetByID(ctx, a.ID)
	assert.Equal(t, page.ErrNotFound, errors.Cause(err))
	_, err = env.svc.GetRevision(ctx, a.ID, 1)
	assert.Equal(t, page.ErrRevisionNotFound, errors.Cause(err), "revisions go with the document")
}
