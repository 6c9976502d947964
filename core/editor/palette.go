package editor

import (
	"fmt"
	"io/fs"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/trezcool/masomo/core/blocktree"
)

const paletteFile = "assets/palette.yaml"

var ErrUnknownDescriptor = errors.New("block type is not in the palette")

// Descriptor describes a block the user can add from the palette.
type Descriptor struct {
	Type    blocktree.Type  `json:"type" yaml:"type"`
	Label   string          `json:"label" yaml:"label"`
	Group   string          `json:"group" yaml:"group"`
	Content blocktree.Props `json:"content,omitempty" yaml:"content"`
	Styles  blocktree.Props `json:"styles,omitempty" yaml:"styles"`
}

// NewBlock builds a block with the descriptor's default props.
func (d Descriptor) NewBlock(id string) *blocktree.Block {
	return blocktree.NewBlock(id, d.Type, d.Content.Clone(), d.Styles.Clone())
}

// Palette is the ordered catalogue of descriptors.
type Palette struct {
	descriptors []Descriptor
	byType      map[blocktree.Type]int
}

// LoadPalette reads the palette catalogue from fsys.
func LoadPalette(fsys fs.FS) (*Palette, error) {
	data, err := fs.ReadFile(fsys, paletteFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading palette")
	}
	return ParsePalette(data)
}

// ParsePalette parses a YAML list of descriptors.
func ParsePalette(data []byte) (*Palette, error) {
	var raw []struct {
		Type    string                      `yaml:"type"`
		Label   string                      `yaml:"label"`
		Group   string                      `yaml:"group"`
		Content map[interface{}]interface{} `yaml:"content"`
		Styles  map[interface{}]interface{} `yaml:"styles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing palette")
	}

	p := &Palette{
		descriptors: make([]Descriptor, 0, len(raw)),
		byType:      make(map[blocktree.Type]int, len(raw)),
	}
	for _, r := range raw {
		typ := blocktree.Type(r.Type)
		if !typ.Valid() {
			return nil, errors.Wrapf(blocktree.ErrUnknownType, "palette entry %q", r.Type)
		}
		if _, dup := p.byType[typ]; dup {
			return nil, errors.Errorf("palette entry %q is listed twice", r.Type)
		}
		p.byType[typ] = len(p.descriptors)
		p.descriptors = append(p.descriptors, Descriptor{
			Type:    typ,
			Label:   r.Label,
			Group:   r.Group,
			Content: stringMap(r.Content),
			Styles:  stringMap(r.Styles),
		})
	}
	return p, nil
}

// Descriptors returns the catalogue in display order.
func (p *Palette) Descriptors() []Descriptor {
	ds := make([]Descriptor, len(p.descriptors))
	copy(ds, p.descriptors)
	return ds
}

func (p *Palette) Descriptor(typ blocktree.Type) (Descriptor, error) {
	i, ok := p.byType[typ]
	if !ok {
		return Descriptor{}, errors.Wrapf(ErrUnknownDescriptor, "%q", typ)
	}
	return p.descriptors[i], nil
}

// stringMap converts yaml's map[interface{}]interface{} into JSON friendly maps, recursively.
func stringMap(m map[interface{}]interface{}) blocktree.Props {
	if m == nil {
		return nil
	}
	props := make(blocktree.Props, len(m))
	for k, v := range m {
		props[fmt.Sprint(k)] = normalize(v)
	}
	return props
}

func normalize(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[interface{}]interface{}:
		return map[string]interface{}(stringMap(vv))
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
