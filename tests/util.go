package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
)

// Config returns a configuration fit for tests: drafts stay in memory and no mail leaves the process.
func Config() *core.Config {
	return &core.Config{
		TestMode:        true,
		Env:             "TEST",
		AppName:         "Masomo",
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://front.test",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
		Editor: core.EditorConfig{
			MaxHistory:     20,
			SessionTTL:     time.Hour,
			DraftsInMemory: true,
		},
	}
}

// Logger records the messages logged at error level and above.
type Logger struct {
	Errors []string
}

var _ core.Logger = (*Logger)(nil) // interface compliance check

func (l *Logger) Debug(string, ...interface{})       {}
func (l *Logger) Info(string, ...interface{})        {}
func (l *Logger) Warn(string, ...interface{})        {}
func (l *Logger) Error(msg string, _ ...interface{}) { l.Errors = append(l.Errors, msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.Errors = append(l.Errors, msg) }

// Validator returns a validator with the core and page rules registered.
func Validator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	page.InitValidators(validate, translator)
	return validate, translator
}

func Text(id, body string) *blocktree.Block {
	return blocktree.NewBlock(id, blocktree.TypeText, blocktree.Props{"text": body}, nil)
}

func CreateDocument(
	t *testing.T,
	svc page.Service,
	validate *validator.Validate,
	title string,
	owner page.Actor,
	blocks ...*blocktree.Block,
) page.Document {
	t.Helper()
	nd := page.NewDocument{Kind: page.KindPage, Title: title, Blocks: blocks}
	require.NoError(t, nd.Validate(context.Background(), validate, svc))
	doc, err := svc.Create(context.Background(), nd, owner)
	require.NoError(t, err)
	return doc
}
