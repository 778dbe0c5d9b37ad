package extractor

import (
	"context"
	"errors"
	"strings"
)

// fakeNode is a hand-built syntax tree node. Positions are resolved
// against the source by searching for each node's snippet inside its
// parent, after the previous sibling.
type fakeNode struct {
	kind     string
	snippet  string
	start    int
	end      int
	startRow int
	endRow   int
	children []*fakeNode
	fields   map[string]*fakeNode
}

type part struct {
	field string
	node  *fakeNode
}

func field(name string, n *fakeNode) part { return part{field: name, node: n} }
func child(n *fakeNode) part              { return part{node: n} }

func node(kind, snippet string, parts ...part) *fakeNode {
	n := &fakeNode{kind: kind, snippet: snippet, fields: map[string]*fakeNode{}}
	for _, p := range parts {
		n.children = append(n.children, p.node)
		if p.field != "" {
			n.fields[p.field] = p.node
		}
	}
	return n
}

func (n *fakeNode) resolve(src string, from int) {
	i := strings.Index(src[from:], n.snippet)
	if i < 0 {
		panic("fake tree: snippet not found: " + n.snippet)
	}
	n.start = from + i
	n.end = n.start + len(n.snippet)
	n.startRow = strings.Count(src[:n.start], "\n")
	n.endRow = strings.Count(src[:n.end], "\n")
	cursor := n.start
	for _, c := range n.children {
		c.resolve(src, cursor)
		cursor = c.end
	}
}

func (n *fakeNode) Kind() string    { return n.kind }
func (n *fakeNode) StartByte() int  { return n.start }
func (n *fakeNode) EndByte() int    { return n.end }
func (n *fakeNode) StartRow() int   { return n.startRow }
func (n *fakeNode) EndRow() int     { return n.endRow }
func (n *fakeNode) ChildCount() int { return len(n.children) }

func (n *fakeNode) Child(i int) Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *fakeNode) ChildByFieldName(name string) Node {
	if c, ok := n.fields[name]; ok {
		return c
	}
	return nil
}

// fakeParser returns a fixed tree for any input.
type fakeParser struct {
	root  *fakeNode
	err   error
	panic bool
	calls int
}

func treeOf(src string, root *fakeNode) *fakeParser {
	root.resolve(src, 0)
	return &fakeParser{root: root}
}

func (p *fakeParser) Parse(ctx context.Context, source []byte, lang Language) (Node, error) {
	p.calls++
	if p.panic {
		panic("grammar crashed")
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.root == nil {
		return nil, nil
	}
	return p.root, nil
}

var errParse = errors.New("boom")
