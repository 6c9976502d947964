package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/masomo/apps/api/echo"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/editor"
	"github.com/trezcool/masomo/core/page"
	appfs "github.com/trezcool/masomo/fs"
	emailsvc "github.com/trezcool/masomo/services/email"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/database"
	boiledrepos "github.com/trezcool/masomo/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
	badgerkv "github.com/trezcool/masomo/storage/kv/badger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(os.Stdout, "API", conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(os.Stdout, "DB", conf)
	dbLogger.Enable(!conf.Debug)

	kvLogger := logsvc.NewRollbarLogger(os.Stdout, "KV", conf)
	kvLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up the draft store
	drafts, err := badgerkv.Open(conf, conf.Editor.DraftTTL, kvLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening draft store: %v", err), err)
	}
	defer func() {
		if err = drafts.Close(); err != nil {
			kvLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	page.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	palette, err := editor.LoadPalette(appfs.FS)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading palette: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	docSvc := page.NewService(
		db,
		boiledrepos.NewDocumentRepository(db),
		sqlxrepos.NewRevisionRepository(db),
		mailSvc,
		logger,
	)
	editorSvc, err := editor.NewService(
		editor.Options{MaxHistory: conf.Editor.MaxHistory, SessionTTL: conf.Editor.SessionTTL},
		palette,
		docSvc,
		drafts,
		validate,
		logger,
	)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up editor: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	sessionsClosed := expvar.NewInt("editor_sessions_swept")

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Sweep idle editing sessions

	stopSweep := make(chan struct{})
	defer close(stopSweep)
	sweepEvery := conf.Editor.SessionTTL / 4
	if sweepEvery < time.Minute {
		sweepEvery = time.Minute
	}
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				sessionsClosed.Add(int64(editorSvc.Sweep(now)))
			case <-stopSweep:
				return
			}
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			DocumentSvc: docSvc,
			EditorSvc:   editorSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				log.Printf("could not force stop server: %v", err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
