//go:build !cgo

package extractor

import (
	"context"
	"fmt"
)

// TreeSitterParser is unavailable without cgo. Parse always fails, so the
// extractor chunks every file.
type TreeSitterParser struct{}

func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{}
}

func (p *TreeSitterParser) Available() bool {
	return false
}

func (p *TreeSitterParser) Parse(ctx context.Context, source []byte, lang Language) (Node, error) {
	return nil, fmt.Errorf("%w: %s (built without cgo)", ErrNoGrammar, lang)
}
