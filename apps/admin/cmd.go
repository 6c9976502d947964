package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/masomo/core/page"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *sql.DB
	docSvc page.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [VERSION] - run the database migrations (up|up-by-one|up-to|down|down-to|redo|version)")
	fmt.Fprintln(cli.out, "  showtree -id DOCUMENT_ID - print a document's block tree with the block paths")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	showTreeCmd := flag.NewFlagSet("showtree", flag.ContinueOnError)
	showTreeCmd.SetOutput(cli.out)
	showTreeID := showTreeCmd.String("id", "", "The document ID.")

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "showtree":
		if err := showTreeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *showTreeID == "" {
			showTreeCmd.Usage()
			return errHelp
		}
		return cli.showTree(context.Background(), *showTreeID)
	default:
		cli.printUsage()
		return errHelp
	}
}
