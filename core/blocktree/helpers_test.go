package blocktree

import "fmt"

func text(id string) *Block { return NewBlock(id, TypeText, Props{"text": id}, nil) }

func image(id string) *Block { return NewBlock(id, TypeImage, Props{"src": "/img/" + id + ".png"}, nil) }

func container(id string, children ...*Block) *Block {
	b := NewBlock(id, TypeContainer, nil, Props{"padding": "8px"})
	b.Blocks = append(b.Blocks, children...)
	return b
}

func form(id string, children ...*Block) *Block {
	b := NewBlock(id, TypeForm, Props{"action": "/subscribe"}, nil)
	b.Blocks = append(b.Blocks, children...)
	return b
}

func tree(bs ...*Block) Blocks {
	root := Blocks(bs)
	Relevel(root)
	return root
}

// topIDs lists the ids of a sequence, without descending.
func topIDs(seq Blocks) []string {
	ids := make([]string, 0, len(seq))
	for _, b := range seq {
		ids = append(ids, b.ID)
	}
	return ids
}

func counterIDs(prefix string) IDFunc {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// sampleTree:
//   0     c1 [t1, t2, c2 [t3, i1]]
//   1     t4
//   2     f1 [t5]
func sampleTree() Blocks {
	return tree(
		container("c1", text("t1"), text("t2"), container("c2", text("t3"), image("i1"))),
		text("t4"),
		form("f1", text("t5")),
	)
}
