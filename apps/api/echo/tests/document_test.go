package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
	emailsvc "github.com/trezcool/masomo/services/email"
)

func Test_documentApi_query(t *testing.T) {
	e := setup(t)

	intro := e.createDocument("Intro", instructor.actor, true)
	syllabus := e.createDocument("Syllabus", instructor.actor, false)
	news := e.createDocument("News", academy.actor, false)

	instructorToken := getToken(t, e.conf, instructor)
	adminToken := getToken(t, e.conf, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/documents", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Author required", path: "/v1/documents", token: getToken(t, e.conf, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Own documents", path: "/v1/documents?ordering=title", token: instructorToken,
			wantCode: http.StatusOK, wantData: marchallList(t, intro, syllabus),
		},
		{
			name: "Admin sees all", path: "/v1/documents?ordering=-title", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, syllabus, news, intro),
		},
		{
			name: "search", path: "/v1/documents?search=SYLL", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, syllabus),
		},
		{
			name: "search (unknown)", path: "/v1/documents?search=lol", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "published=true", path: "/v1/documents?published=true", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, intro),
		},
		{
			name: "published=lol", path: "/v1/documents?published=lol", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"published": "must be a boolean"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}
}

func Test_documentApi_create(t *testing.T) {
	e := setup(t)
	e.createDocument("Taken", academy.actor, false)
	token := getToken(t, e.conf, instructor)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/documents",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Invalid kind", method: http.MethodPost, path: "/v1/documents", token: token,
			body:     []byte(`{"kind": "poem", "title": "Ode"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Slug taken", method: http.MethodPost, path: "/v1/documents", token: token,
			body:     []byte(`{"kind": "page", "title": "Taken"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"slug": page.ErrSlugExists.Error()}),
		},
		{
			name: "Invalid tree", method: http.MethodPost, path: "/v1/documents", token: token,
			body:     []byte(`{"kind": "page", "title": "Broken", "blocks": [{"id": "a", "type": "text"}, {"id": "a", "type": "text"}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Created", method: http.MethodPost, path: "/v1/documents", token: token,
			body:     []byte(`{"kind": "blog", "title": " Hello World ", "tags": ["Go", "go", "Edu"]}`),
			wantCode: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt)
			checkCodeAndData(t, tt, rec)
			if tt.wantCode != http.StatusCreated {
				return
			}

			var doc page.Document
			decode(t, rec, &doc)
			assert.NotEmpty(t, doc.ID)
			assert.Equal(t, page.KindBlog, doc.Kind)
			assert.Equal(t, "Hello World", doc.Title)
			assert.Equal(t, "hello-world", doc.Slug)
			assert.Equal(t, instructor.actor.ID, doc.OwnerID)
			assert.Equal(t, 1, doc.Version)
			assert.False(t, doc.Published)

			stored, err := e.docSvc.GetByID(context.Background(), doc.ID)
			require.NoError(t, err)
			assert.Equal(t, doc.Slug, stored.Slug)
		})
	}
}

func Test_documentApi_retrieve(t *testing.T) {
	e := setup(t)
	doc := e.createDocument("Intro", instructor.actor, false)
	path := "/v1/documents/" + doc.ID

	tests := []httpTest{
		{name: "Owner", path: path, token: getToken(t, e.conf, instructor), wantCode: http.StatusOK, wantData: marchallObj(t, doc)},
		{name: "Admin", path: path, token: getToken(t, e.conf, admin), wantCode: http.StatusOK, wantData: marchallObj(t, doc)},
		{
			name: "Other author", path: path, token: getToken(t, e.conf, academy),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Unknown", path: "/v1/documents/nope", token: getToken(t, e.conf, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: page.ErrNotFound.Error()}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}
}

func Test_documentApi_update(t *testing.T) {
	e := setup(t)
	doc := e.createDocument("Intro", instructor.actor, false)
	e.createDocument("Taken", instructor.actor, false)
	path := "/v1/documents/" + doc.ID
	token := getToken(t, e.conf, instructor)

	tests := []httpTest{
		{
			name: "Other author", method: http.MethodPut, path: path, token: getToken(t, e.conf, academy),
			body: []byte(`{"title": "Mine"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Slug taken", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{"slug": "taken"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"slug": page.ErrSlugExists.Error()}),
		},
		{
			name: "Stale version", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{"title": "Old", "version": 7}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: page.ErrVersionConflict.Error()}),
		},
		{
			name: "Updated", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{"title": "Welcome", "description": "First steps", "version": 1}`),
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt)
			checkCodeAndData(t, tt, rec)
			if tt.wantCode != http.StatusOK {
				return
			}

			var got page.Document
			decode(t, rec, &got)
			assert.Equal(t, "Welcome", got.Title)
			assert.Equal(t, "intro", got.Slug)
			assert.Equal(t, "First steps", got.Description)
			assert.Equal(t, 2, got.Version)
			assert.Equal(t, doc.Blocks, got.Blocks)
		})
	}
}

func Test_documentApi_saveTree(t *testing.T) {
	e := setup(t)
	doc := e.createDocument("Intro", instructor.actor, false)
	path := "/v1/documents/" + doc.ID + "/blocks"
	token := getToken(t, e.conf, instructor)
	tree := `[{"id": "c", "type": "container", "allowNesting": true, "blocks": [` +
		`{"id": "t", "type": "text", "content": {"text": "Hi"}, "blocks": []}]}]`

	tests := []httpTest{
		{
			name: "Unauthenticated", method: http.MethodPut, path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Other author", method: http.MethodPut, path: path, token: getToken(t, e.conf, academy),
			body: []byte(`{"version": 1, "blocks": []}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Missing fields", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"blocks":  "blocks is a required field",
				"version": "version is a required field",
			}),
		},
		{
			name: "Duplicate ids", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{"version": 1, "blocks": [{"id": "a", "type": "text", "blocks": []}, {"id": "a", "type": "text", "blocks": []}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Stale version", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{"version": 7, "blocks": ` + tree + `}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: page.ErrVersionConflict.Error()}),
		},
		{
			name: "Saved", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{"version": 1, "blocks": ` + tree + `}`),
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt)
			checkCodeAndData(t, tt, rec)
			if tt.wantCode != http.StatusOK {
				return
			}

			var got page.Document
			decode(t, rec, &got)
			assert.Equal(t, 2, got.Version)
			assert.Equal(t, "Intro", got.Title)
			assert.Equal(t, []string{"c", "t"}, blocktree.IDs(got.Blocks))
			assert.Equal(t, 1, got.Blocks[0].Blocks[0].Level)

			revs, err := e.docSvc.Revisions(context.Background(), doc.ID)
			require.NoError(t, err)
			assert.Len(t, revs, 2)
		})
	}
}

func Test_documentApi_destroy(t *testing.T) {
	e := setup(t)
	doc := e.createDocument("Intro", instructor.actor, false)
	path := "/v1/documents/" + doc.ID
	token := getToken(t, e.conf, instructor)

	rec := e.serve(httpTest{method: http.MethodDelete, path: path, token: getToken(t, e.conf, academy)})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.serve(httpTest{method: http.MethodDelete, path: path, token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.serve(httpTest{path: path, token: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_documentApi_publish(t *testing.T) {
	e := setup(t)
	doc := e.createDocument("Intro", instructor.actor, false)
	path := "/v1/documents/" + doc.ID
	token := getToken(t, e.conf, instructor)

	rec := e.serve(httpTest{method: http.MethodPost, path: path + "/unpublish", token: token})
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: page.ErrNotPublished.Error()})}, rec)

	rec = e.serve(httpTest{method: http.MethodPost, path: path + "/publish", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got page.Document
	decode(t, rec, &got)
	assert.True(t, got.Published)
	assert.False(t, got.PublishedAt.IsZero())
	assert.Len(t, emailsvc.GetSentMessages(), 1)

	rec = e.serve(httpTest{method: http.MethodPost, path: path + "/publish", token: token})
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: page.ErrAlreadyPublished.Error()})}, rec)

	rec = e.serve(httpTest{method: http.MethodPost, path: path + "/unpublish", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &got)
	assert.False(t, got.Published)
}

func Test_documentApi_revisions(t *testing.T) {
	e := setup(t)
	doc := e.createDocument("Intro", instructor.actor, false)
	path := "/v1/documents/" + doc.ID
	token := getToken(t, e.conf, instructor)

	rec := e.serve(httpTest{method: http.MethodPut, path: path, token: token, body: []byte(`{"title": "Welcome"}`)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("list", func(t *testing.T) {
		rec := e.serve(httpTest{path: path + "/revisions", token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		var revs []page.Revision
		decode(t, rec, &revs)
		require.Len(t, revs, 2)
		assert.Equal(t, 2, revs[0].Version)
		assert.Equal(t, "Welcome", revs[0].Title)
		assert.Equal(t, 1, revs[1].Version)
	})

	tests := []httpTest{
		{name: "Bad version", path: path + "/revisions/abc", token: token, wantCode: http.StatusBadRequest},
		{
			name: "Unknown version", path: path + "/revisions/9", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: page.ErrRevisionNotFound.Error()}),
		},
		{name: "Other author", path: path + "/revisions/1", token: getToken(t, e.conf, academy), wantCode: http.StatusForbidden},
		{name: "Version 1", path: path + "/revisions/1", token: token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(tt))
		})
	}

	t.Run("diff", func(t *testing.T) {
		rec := e.serve(httpTest{path: path + "/diff?from=1", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got struct {
			From int    `json:"from"`
			To   int    `json:"to"`
			Diff string `json:"diff"`
		}
		decode(t, rec, &got)
		assert.Equal(t, 1, got.From)
		assert.Equal(t, 2, got.To)
		assert.Contains(t, got.Diff, "Welcome")
	})

	t.Run("restore", func(t *testing.T) {
		rec := e.serve(httpTest{method: http.MethodPost, path: path + "/revisions/1/restore", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got page.Document
		decode(t, rec, &got)
		assert.Equal(t, "Intro", got.Title)
		assert.Equal(t, 3, got.Version)
	})
}
