package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/masomo/core/blocktree"
)

// showTree prints one line per block: its path, type and id, indented by depth.
func (cli *commandLine) showTree(ctx context.Context, id string) error {
	doc, err := cli.docSvc.GetByID(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s (%s, v%d)\n", doc.Title, doc.Slug, doc.Version)
	if len(doc.Blocks) == 0 {
		fmt.Fprintln(cli.out, "  (empty)")
		return nil
	}
	blocktree.Walk(doc.Blocks, func(b *blocktree.Block, p blocktree.Path) bool {
		fmt.Fprintf(cli.out, "%s%-8s %s #%s\n", strings.Repeat("  ", len(p)), p, b.Type, b.ID)
		return true
	})
	return nil
}
