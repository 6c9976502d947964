package blocktree

import (
	"encoding/json"

	"github.com/mohae/deepcopy"
)

// Type identifies the kind of a Block. It decides how the block renders and whether it may hold children.
type Type string

// Block types
const (
	TypeText      Type = "text"
	TypeHeading1  Type = "heading1"
	TypeHeading2  Type = "heading2"
	TypeHeading3  Type = "heading3"
	TypeQuote     Type = "quote"
	TypeCode      Type = "code"
	TypeImage     Type = "image"
	TypeVideo     Type = "video"
	TypeButton    Type = "button"
	TypeDivider   Type = "divider"
	TypeContainer Type = "container"
	TypeForm      Type = "form"
)

var AllTypes = []Type{
	TypeText, TypeHeading1, TypeHeading2, TypeHeading3, TypeQuote, TypeCode,
	TypeImage, TypeVideo, TypeButton, TypeDivider, TypeContainer, TypeForm,
}

func (t Type) Valid() bool {
	for _, typ := range AllTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// AllowsNesting reports whether blocks of this type may contain child blocks.
func (t Type) AllowsNesting() bool {
	return t == TypeContainer || t == TypeForm
}

// Props is an opaque payload (content or styles) carried by a Block.
type Props map[string]interface{}

// Clone returns a deep copy of the props.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	return deepcopy.Copy(p).(Props)
}

// Block is one node of a page tree.
type Block struct {
	ID           string `json:"id"`
	Type         Type   `json:"type"`
	Level        int    `json:"level"` // depth in the tree; UI stacking only
	AllowNesting bool   `json:"allowNesting"`
	Blocks       Blocks `json:"blocks"`
	Content      Props  `json:"content,omitempty"`
	Styles       Props  `json:"styles,omitempty"`
}

// NewBlock creates a childless Block of the given type.
func NewBlock(id string, typ Type, content, styles Props) *Block {
	return &Block{
		ID:           id,
		Type:         typ,
		AllowNesting: typ.AllowsNesting(),
		Blocks:       Blocks{},
		Content:      content,
		Styles:       styles,
	}
}

// Clone deep-copies the block and its whole subtree. Ids are kept.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	return &Block{
		ID:           b.ID,
		Type:         b.Type,
		Level:        b.Level,
		AllowNesting: b.AllowNesting,
		Blocks:       b.Blocks.Clone(),
		Content:      b.Content.Clone(),
		Styles:       b.Styles.Clone(),
	}
}

// Blocks is an ordered sequence of sibling blocks. The root of a page is a Blocks value.
type Blocks []*Block

// MarshalJSON always encodes an array, never null.
func (bs Blocks) MarshalJSON() ([]byte, error) {
	if bs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*Block(bs))
}

// Clone deep-copies the sequence and every subtree in it.
func (bs Blocks) Clone() Blocks {
	cp := make(Blocks, 0, len(bs))
	for _, b := range bs {
		cp = append(cp, b.Clone())
	}
	return cp
}
