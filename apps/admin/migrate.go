package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/trezcool/goose"

	appfs "github.com/trezcool/masomo/fs"
	"github.com/trezcool/masomo/storage/database"
)

type migrator struct {
	up        func(db *sql.DB, fsys fs.FS, dir string) error
	upByOne   func(db *sql.DB, fsys fs.FS, dir string) error
	upTo      func(db *sql.DB, fsys fs.FS, dir string, version int64) error
	down      func(db *sql.DB, fsys fs.FS, dir string) error
	downTo    func(db *sql.DB, fsys fs.FS, dir string, version int64) error
	redo      func(db *sql.DB, fsys fs.FS, dir string) error
	dbVersion func(db *sql.DB) (int64, error)
}

var gooseMigrator = migrator{ // mockable
	up:        goose.Up,
	upByOne:   goose.UpByOne,
	upTo:      goose.UpTo,
	down:      goose.Down,
	downTo:    goose.DownTo,
	redo:      goose.Redo,
	dbVersion: goose.GetDBVersion,
}

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printMigrateUsage()
		return errHelp
	}

	fsys, dir := appfs.FS, database.MigrationsDir
	m := gooseMigrator
	command, args := args[0], args[1:]

	versionArg := func() (int64, error) {
		if len(args) == 0 {
			return 0, fmt.Errorf("%s must be of form: admin migrate %s VERSION", command, command)
		}
		v, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("version must be a number (got '%s')", args[0])
		}
		return v, nil
	}

	switch command {
	case "up":
		return m.up(cli.db, fsys, dir)
	case "up-by-one":
		return m.upByOne(cli.db, fsys, dir)
	case "up-to":
		v, err := versionArg()
		if err != nil {
			return err
		}
		return m.upTo(cli.db, fsys, dir, v)
	case "down":
		return m.down(cli.db, fsys, dir)
	case "down-to":
		v, err := versionArg()
		if err != nil {
			return err
		}
		return m.downTo(cli.db, fsys, dir, v)
	case "redo":
		return m.redo(cli.db, fsys, dir)
	case "version":
		v, err := m.dbVersion(cli.db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "database version: %d\n", v)
		return nil
	default:
		return fmt.Errorf("%q: no such command", command)
	}
}

func (cli *commandLine) printMigrateUsage() {
	fmt.Fprintln(cli.out, "Usage: admin migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo|version")
}
