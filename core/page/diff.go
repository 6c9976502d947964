package page

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo/core/blocktree"
)

// outline renders a revision as stable, line oriented text: the title then the indented JSON tree.
func outline(rev Revision) ([]string, error) {
	blocks := rev.Blocks.Clone()
	blocktree.Relevel(blocks)
	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding blocks")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "title: %s\n", rev.Title)
	sb.Write(data)
	sb.WriteString("\n")
	return difflib.SplitLines(sb.String()), nil
}

// diffRevisions returns the unified diff going from a to b; empty when they match.
func diffRevisions(a, b Revision) (string, error) {
	aLines, err := outline(a)
	if err != nil {
		return "", err
	}
	bLines, err := outline(b)
	if err != nil {
		return "", err
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        aLines,
		B:        bLines,
		FromFile: fmt.Sprintf("version %d", a.Version),
		ToFile:   fmt.Sprintf("version %d", b.Version),
		Context:  3,
	})
	return diff, errors.Wrap(err, "diffing revisions")
}
