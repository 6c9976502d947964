package main

import (
	"fmt"
	"os"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/page"
	emailsvc "github.com/trezcool/masomo/services/email"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/database"
	boiledrepos "github.com/trezcool/masomo/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(os.Stderr, "ADMIN", conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db: db,
		docSvc: page.NewService(
			db,
			boiledrepos.NewDocumentRepository(db),
			sqlxrepos.NewRevisionRepository(db),
			emailsvc.NewConsoleService(conf, logger),
			logger,
		),
		out: os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin: %v", err), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
