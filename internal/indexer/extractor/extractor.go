package extractor

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

type Extractor struct {
	parser Parser
	logger *slog.Logger
}

// New returns an Extractor using parser. A nil parser means the tree-sitter
// parser, which is unavailable in builds without cgo; every file is then
// chunked.
func New(parser Parser) *Extractor {
	logger := slog.Default().With("component", "extractor")
	if parser == nil {
		ts := NewTreeSitterParser()
		if !ts.Available() {
			logger.Warn("tree-sitter grammars are not compiled in, files will be indexed as line chunks")
		}
		parser = ts
	}
	return &Extractor{
		parser: parser,
		logger: logger,
	}
}

// Extract returns the symbols of one file. It never fails: when the file
// cannot be parsed or no declaration is found, overlapping line chunks are
// returned instead. Only an empty file yields no symbols.
func (e *Extractor) Extract(filePath string, source []byte, lang Language) []Symbol {
	source = sanitize(source)
	if symbols := e.fromTree(filePath, source, lang); len(symbols) > 0 {
		return symbols
	}
	return ChunkByLines(filePath, source, lang.Name())
}

func (e *Extractor) fromTree(filePath string, source []byte, lang Language) (symbols []Symbol) {
	sp, ok := grammars[lang]
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("syntax walk panicked, falling back to chunks",
				"path", filePath,
				"language", lang,
				"panic", r,
			)
			symbols = nil
		}
	}()

	root, err := e.parser.Parse(context.Background(), source, lang)
	if err != nil {
		e.logger.Debug("parse failed, falling back to chunks",
			"path", filePath,
			"language", lang,
			"error", err,
		)
		return nil
	}
	if root == nil {
		return nil
	}

	w := &walk{
		gram:     sp,
		src:      source,
		filePath: filePath,
		language: lang.Name(),
	}
	w.scope(root, "", false, false)
	return w.symbols
}

type walk struct {
	gram     *grammar
	src      []byte
	filePath string
	language string
	symbols  []Symbol
}

func (w *walk) scope(n Node, prefix string, members, exported bool) {
	for i := 0; i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			w.visit(child, prefix, members, exported)
		}
	}
}

func (w *walk) visit(n Node, prefix string, members, exported bool) {
	kind := n.Kind()
	if w.gram.passthrough[kind] {
		w.scope(n, prefix, members, exported || w.gram.exports[kind])
		return
	}
	if b, ok := w.gram.bindings[kind]; ok {
		w.bind(n, b, prefix, exported)
		return
	}
	if r, ok := w.gram.rules[kind]; ok {
		w.apply(r, n, n, prefix, members)
	}
}

// apply handles a declaration. decl supplies name, kind, and body; span
// supplies the symbol's lines and content.
func (w *walk) apply(r rule, decl, span Node, prefix string, members bool) {
	if r.unwrap != "" {
		inner := decl.ChildByFieldName(r.unwrap)
		if inner == nil {
			return
		}
		ir, ok := w.gram.rules[inner.Kind()]
		if !ok || ir.unwrap != "" {
			return
		}
		w.apply(ir, inner, span, prefix, members)
		return
	}
	if r.require != "" && decl.ChildByFieldName(r.require) == nil {
		return
	}

	name := w.name(r, decl)
	if name == "" {
		name = r.fallbackName
	}
	if name == "" {
		return
	}
	qualified := w.qualify(prefix, name)

	if kind := r.kindFor(decl, members); kind != "" {
		w.emit(span, qualified, kind)
	}

	if r.body == "" {
		return
	}
	body := decl.ChildByFieldName(r.body)
	if body == nil && r.bodySelf {
		body = decl
	}
	if body != nil {
		w.scope(body, qualified, r.members, false)
	}
}

func (r rule) kindFor(n Node, members bool) Kind {
	switch {
	case r.kindOf != nil:
		return r.kindOf(n)
	case members && r.memberKind != "":
		return r.memberKind
	default:
		return r.kind
	}
}

func (w *walk) name(r rule, n Node) string {
	if r.name != nil {
		return r.name(n, w.src)
	}
	field := r.nameField
	if field == "" {
		field = "name"
	}
	return text(n.ChildByFieldName(field), w.src)
}

func (w *walk) bind(n Node, b *binding, prefix string, exported bool) {
	exported = exported || b.exported

	declarators := []Node{n}
	if b.declarator != "" {
		declarators = declarators[:0]
		for i := 0; i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil && c.Kind() == b.declarator {
				declarators = append(declarators, c)
			}
		}
	}

	for _, d := range declarators {
		name := text(d.ChildByFieldName(b.nameField), w.src)
		if name == "" {
			continue
		}
		value := d.ChildByFieldName(b.valueField)
		switch {
		case value == nil:
			if !b.requireValue && exported {
				w.emit(d, w.qualify(prefix, name), KindVariable)
			}
		case b.functions[value.Kind()]:
			w.emit(d, w.qualify(prefix, name), KindFunction)
		case exported && !b.trivial[value.Kind()]:
			w.emit(d, w.qualify(prefix, name), KindVariable)
		}
	}
}

func (w *walk) qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + w.gram.separator + name
}

func (w *walk) emit(n Node, name string, kind Kind) {
	w.symbols = append(w.symbols, Symbol{
		FilePath:  w.filePath,
		StartLine: n.StartRow() + 1,
		EndLine:   n.EndRow() + 1,
		Name:      name,
		Kind:      kind,
		Content:   truncate(text(n, w.src), MaxContentBytes),
		Language:  w.language,
	})
}

func text(n Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start < 0 || end > len(src) || start >= end {
		return ""
	}
	return string(src[start:end])
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func sanitize(source []byte) []byte {
	if utf8.Valid(source) {
		return source
	}
	return []byte(strings.ToValidUTF8(string(source), string(utf8.RuneError)))
}
