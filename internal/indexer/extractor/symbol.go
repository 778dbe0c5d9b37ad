// Package extractor turns source files into searchable symbols. A syntax
// tree from a Parser is walked with per-language rules; when no tree is
// available, or the walk finds nothing, the file is split into overlapping
// line windows so it remains searchable.
package extractor

// MaxContentBytes caps Symbol.Content.
const MaxContentBytes = 8192

// Kind classifies a symbol. The string value is what gets indexed.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindType      Kind = "type"
	KindTrait     Kind = "trait"
	KindModule    Kind = "module"
	KindVariable  Kind = "variable"
	KindChunk     Kind = "chunk"
)

func (k Kind) String() string {
	return string(k)
}

// Symbol is one searchable unit of code. Lines are 1-based and inclusive.
type Symbol struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Content   string `json:"content"`
	Language  string `json:"language"`
}

// IndexText is the text that is tokenized to index the symbol.
func (s Symbol) IndexText() string {
	return s.Name + " " + string(s.Kind) + " " + s.Content
}
