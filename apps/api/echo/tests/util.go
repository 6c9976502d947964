package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo/apps/api/echo"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/editor"
	"github.com/trezcool/masomo/core/page"
	appfs "github.com/trezcool/masomo/fs"
	emailsvc "github.com/trezcool/masomo/services/email"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
	badgerkv "github.com/trezcool/masomo/storage/kv/badger"
	testutil "github.com/trezcool/masomo/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type env struct {
	conf      *core.Config
	app       Server
	docSvc    page.Service
	editorSvc editor.Service
	drafts    *badgerkv.DraftStore
	logger    *testutil.Logger
	t         *testing.T
}

func setup(t *testing.T) *env {
	conf := testutil.Config()
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	validate, translator := testutil.Validator()

	// set up DB & repos
	db := inmemdb.Open()
	docSvc := page.NewService(
		nil,
		inmemdb.NewDocumentRepository(db),
		inmemdb.NewRevisionRepository(db),
		emailsvc.NewConsoleServiceMock(conf, logger),
		logger,
	)

	palette, err := editor.LoadPalette(appfs.FS)
	require.NoError(t, err)
	drafts, err := badgerkv.Open(conf, 0, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drafts.Close() })

	editorSvc, err := editor.NewService(
		editor.Options{MaxHistory: conf.Editor.MaxHistory, SessionTTL: conf.Editor.SessionTTL},
		palette,
		docSvc,
		drafts,
		validate,
		logger,
	)
	require.NoError(t, err)

	// set up server
	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		DocumentSvc: docSvc,
		EditorSvc:   editorSvc,
		Validate:    validate,
		Translator:  translator,
	})
	return &env{
		conf:      conf,
		app:       app,
		docSvc:    docSvc,
		editorSvc: editorSvc,
		drafts:    drafts,
		logger:    logger,
		t:         t,
	}
}

// createDocument stores a page through the service, bypassing the API.
func (e *env) createDocument(title string, owner page.Actor, published bool) page.Document {
	validate, _ := testutil.Validator()
	doc := testutil.CreateDocument(e.t, e.docSvc, validate, title, owner, testutil.Text("t1", title))
	if published {
		var err error
		doc, err = e.docSvc.Publish(context.Background(), doc.ID)
		require.NoError(e.t, err)
	}
	return doc
}

func (e *env) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type user struct {
	actor page.Actor
	roles []string
}

var (
	instructor = user{actor: page.Actor{ID: "u1", Username: "ada", Email: "ada@test.cd"}, roles: []string{RoleInstructor + "1"}}
	academy    = user{actor: page.Actor{ID: "u2", Username: "bob", Email: "bob@test.cd"}, roles: []string{RoleAcademy + "7"}}
	student    = user{actor: page.Actor{ID: "u3", Username: "kid"}, roles: []string{RoleStudent + "2"}}
	admin      = user{actor: page.Actor{ID: "u4", Username: "root", IsAdmin: true}, roles: []string{RoleAdmin + "0"}}
)

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, usr user) string {
	claims := NewClaims(conf, usr.actor.ID, usr.actor.Username, usr.actor.Email, usr.roles...)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
