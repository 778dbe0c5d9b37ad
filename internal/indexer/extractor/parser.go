package extractor

import (
	"context"
	"errors"
)

// ErrNoGrammar is returned by a Parser that has no grammar for a language.
var ErrNoGrammar = errors.New("no grammar available")

// Node is the read-only view of a syntax tree node the extractor walks.
// Child and ChildByFieldName return nil when there is no such node. Rows
// are 0-based.
type Node interface {
	Kind() string
	StartByte() int
	EndByte() int
	StartRow() int
	EndRow() int
	ChildCount() int
	Child(i int) Node
	ChildByFieldName(field string) Node
}

// Parser produces a syntax tree for source. Implementations must be safe
// for concurrent use.
type Parser interface {
	Parse(ctx context.Context, source []byte, lang Language) (Node, error)
}
