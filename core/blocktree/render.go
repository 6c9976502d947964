package blocktree

import (
	"fmt"
	"html/template"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/masomo/fs"
)

// Breakpoint is a viewport size class.
type Breakpoint string

const (
	Desktop Breakpoint = "desktop"
	Tablet  Breakpoint = "tablet"
	Mobile  Breakpoint = "mobile"
)

func (bp Breakpoint) Valid() bool {
	return bp == Desktop || bp == Tablet || bp == Mobile
}

var blockTemplates = template.Must(template.ParseFS(appfs.FS, "templates/blocks/*.gohtml"))

// cssProperty matches the property names allowed in inline styles.
var cssProperty = regexp.MustCompile(`^-?[a-z][a-z0-9-]*$`)

type cssDecl struct {
	Prop  string
	Value string
}

// blockView is what the block templates see. html/template escapes every field for its context:
// unsafe CSS values and URLs are replaced by "ZgotmplZ".
type blockView struct {
	ID       string
	Style    []cssDecl
	Text     string
	Language string
	Src      string
	Alt      string
	Href     string
	Action   string
	Method   string
	Children template.HTML
}

// RenderHTML renders the tree as an HTML fragment for the given breakpoint.
// Styles hold base CSS properties; a nested "tablet" or "mobile" map overrides them on that breakpoint.
func RenderHTML(root Blocks, bp Breakpoint) (template.HTML, error) {
	if !bp.Valid() {
		bp = Desktop
	}
	var sb strings.Builder
	for _, b := range root {
		if err := render(&sb, b, bp); err != nil {
			return "", err
		}
	}
	return template.HTML(sb.String()), nil
}

func render(w io.Writer, b *Block, bp Breakpoint) error {
	if !b.Type.Valid() {
		return errors.Wrapf(ErrUnknownType, "block %q has type %q", b.ID, b.Type)
	}

	v := blockView{
		ID:       b.ID,
		Style:    b.css(bp),
		Text:     b.Content.str("text"),
		Language: b.Content.str("language"),
		Src:      safeURL(b.Content.str("src")),
		Alt:      b.Content.str("alt"),
		Href:     safeURL(b.Content.str("href")),
		Action:   safeURL(b.Content.str("action")),
		Method:   "post",
	}
	if strings.EqualFold(b.Content.str("method"), "get") {
		v.Method = "get"
	}
	if len(b.Blocks) > 0 {
		var children strings.Builder
		for _, c := range b.Blocks {
			if err := render(&children, c, bp); err != nil {
				return err
			}
		}
		v.Children = template.HTML(children.String()) // already escaped by the templates
	}

	return errors.Wrapf(blockTemplates.ExecuteTemplate(w, string(b.Type), v), "rendering block %q", b.ID)
}

func (p Props) str(key string) string {
	if v, ok := p[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// css flattens the block styles into inline declarations, sorted by property.
// Declarations whose property is not a plain CSS identifier are dropped.
func (b *Block) css(bp Breakpoint) []cssDecl {
	decls := make(map[string]string)
	for k, v := range b.Styles {
		if Breakpoint(k).Valid() {
			continue
		}
		decls[kebab(k)] = fmt.Sprint(v)
	}
	var over map[string]interface{}
	switch v := b.Styles[string(bp)].(type) {
	case map[string]interface{}:
		over = v
	case Props:
		over = v
	}
	for k, v := range over {
		decls[kebab(k)] = fmt.Sprint(v)
	}

	out := make([]cssDecl, 0, len(decls))
	for k, v := range decls {
		if cssProperty.MatchString(k) {
			out = append(out, cssDecl{Prop: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prop < out[j].Prop })
	return out
}

// kebab turns a camelCase style key (fontSize) into its CSS property name (font-size).
func kebab(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// safeURL keeps absolute http(s) and mailto URLs, fragments and same-origin paths; anything else becomes "#".
// Protocol-relative URLs ("//host", `/\host`) point to another origin and are rejected.
func safeURL(u string) string {
	l := strings.ToLower(strings.TrimSpace(u))
	if strings.HasPrefix(l, "//") || strings.HasPrefix(l, "/\\") {
		return "#"
	}
	if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "/") ||
		strings.HasPrefix(l, "#") || strings.HasPrefix(l, "mailto:") {
		return u
	}
	return "#"
}
