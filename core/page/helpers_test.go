package page_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
	emailsvc "github.com/trezcool/masomo/services/email"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

var (
	ada   = page.Actor{ID: "u1", Username: "ada", Email: "ada@test.cd"}
	bob   = page.Actor{ID: "u2", Username: "bob"}
	admin = page.Actor{ID: "u3", Username: "admin", IsAdmin: true}
)

type testLogger struct{ errors []string }

func (l *testLogger) Debug(string, ...interface{})       {}
func (l *testLogger) Info(string, ...interface{})        {}
func (l *testLogger) Warn(string, ...interface{})        {}
func (l *testLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }

type testEnv struct {
	db       *inmemdb.DB
	svc      page.Service
	validate *validator.Validate
	logger   *testLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{AppName: "Masomo", TestMode: true, FrontendBaseURL: "http://front.test"}
	logger := new(testLogger)
	core.ParseEmailTemplates(conf, logger)
	require.Empty(t, logger.errors)
	emailsvc.ResetSentMessages()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	page.InitValidators(validate, translator)

	db := inmemdb.Open()
	return &testEnv{
		db: db,
		svc: page.NewService(
			nil,
			inmemdb.NewDocumentRepository(db),
			inmemdb.NewRevisionRepository(db),
			emailsvc.NewConsoleServiceMock(conf, logger),
			logger,
		),
		validate: validate,
		logger:   logger,
	}
}

func text(id, body string) *blocktree.Block {
	return blocktree.NewBlock(id, blocktree.TypeText, blocktree.Props{"text": body}, nil)
}

func (env *testEnv) create(t *testing.T, title string, owner page.Actor, blocks ...*blocktree.Block) page.Document {
	t.Helper()
	nd := page.NewDocument{Kind: page.KindPage, Title: title, Blocks: blocks}
	require.NoError(t, nd.Validate(context.Background(), env.validate, env.svc))
	doc, err := env.svc.Create(context.Background(), nd, owner)
	require.NoError(t, err)
	return doc
}
