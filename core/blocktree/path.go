package blocktree

import (
	"strconv"
	"strings"
)

// BasePath is the path string naming the root sequence itself.
const BasePath = "base"

// Path locates a block by the sibling index at each level, starting from the root.
// The empty Path is Base: the root sequence, which is not a Block.
type Path []int

// ParsePath parses the dash-separated form used by the UI, e.g. "2-0-1".
// "" and "base" both parse to Base.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == BasePath {
		return Path{}, nil
	}
	parts := strings.Split(s, "-")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, ErrInvalidPath
		}
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, ErrInvalidPath
		}
		p = append(p, i)
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on malformed input. Tests & literals only.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(`blocktree: ParsePath(` + strconv.Quote(s) + `): ` + err.Error())
	}
	return p
}

func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, i := range p {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, "-")
}

func (p Path) IsBase() bool { return len(p) == 0 }

// Parent returns the path of the sequence holding p. The parent of a top-level path is Base.
func (p Path) Parent() Path {
	if p.IsBase() {
		return Path{}
	}
	return p[:len(p)-1:len(p)-1]
}

// Index returns the position of p within its parent, or -1 for Base.
func (p Path) Index() int {
	if p.IsBase() {
		return -1
	}
	return p[len(p)-1]
}

// Child returns the path of the i-th child of p.
func (p Path) Child(i int) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, i)
}

// Contains reports whether q lies strictly inside the subtree rooted at p.
func (p Path) Contains(q Path) bool {
	if len(q) <= len(p) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// depth is the Level of a block placed at p.
func (p Path) depth() int { return len(p) - 1 }
