//go:build cgo

package extractor

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TreeSitterParser parses with the tree-sitter grammars. A fresh
// sitter.Parser is used per call since those are not safe to share.
type TreeSitterParser struct{}

func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{}
}

// Available reports whether tree-sitter grammars are compiled in.
func (p *TreeSitterParser) Available() bool {
	return true
}

func (p *TreeSitterParser) Parse(ctx context.Context, source []byte, lang Language) (Node, error) {
	grammar, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse error: empty tree for %s", lang)
	}
	return wrap(root), nil
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangJavaScript, LangJSX:
		return javascript.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangCSharp:
		return csharp.GetLanguage(), nil
	case LangRuby:
		return ruby.GetLanguage(), nil
	case LangC:
		return c.GetLanguage(), nil
	case LangCpp:
		return cpp.GetLanguage(), nil
	case LangPHP:
		return php.GetLanguage(), nil
	case LangScala:
		return scala.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoGrammar, lang)
	}
}

type sitterNode struct {
	n *sitter.Node
}

// wrap keeps a missing child a nil Node rather than a Node holding nil.
func wrap(n *sitter.Node) Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return sitterNode{n: n}
}

func (s sitterNode) Kind() string    { return s.n.Type() }
func (s sitterNode) StartByte() int  { return int(s.n.StartByte()) }
func (s sitterNode) EndByte() int    { return int(s.n.EndByte()) }
func (s sitterNode) StartRow() int   { return int(s.n.StartPoint().Row) }
func (s sitterNode) EndRow() int     { return int(s.n.EndPoint().Row) }
func (s sitterNode) ChildCount() int { return int(s.n.ChildCount()) }

func (s sitterNode) Child(i int) Node {
	return wrap(s.n.Child(i))
}

func (s sitterNode) ChildByFieldName(field string) Node {
	return wrap(s.n.ChildByFieldName(field))
}
