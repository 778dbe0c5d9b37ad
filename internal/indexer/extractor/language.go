package extractor

import (
	"path/filepath"
	"strings"
)

// Language identifies the grammar used to parse a file. JSX and TSX have
// their own grammars but report the base language name.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "javascript"
	LangJSX        Language = "jsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangC          Language = "c"
	LangCpp        Language = "cpp"
	LangPHP        Language = "php"
	LangScala      Language = "scala"
)

var extensions = map[string]Language{
	".ts":      LangTypeScript,
	".tsx":     LangTSX,
	".js":      LangJavaScript,
	".mjs":     LangJavaScript,
	".cjs":     LangJavaScript,
	".jsx":     LangJSX,
	".py":      LangPython,
	".pyw":     LangPython,
	".rs":      LangRust,
	".go":      LangGo,
	".java":    LangJava,
	".cs":      LangCSharp,
	".rb":      LangRuby,
	".rake":    LangRuby,
	".gemspec": LangRuby,
	".c":       LangC,
	".h":       LangC,
	".cpp":     LangCpp,
	".cc":      LangCpp,
	".cxx":     LangCpp,
	".hpp":     LangCpp,
	".hxx":     LangCpp,
	".php":     LangPHP,
	".php7":    LangPHP,
	".php8":    LangPHP,
	".scala":   LangScala,
	".sc":      LangScala,
}

// DetectLanguage maps a file extension to a Language. The boolean is false
// for unsupported files.
func DetectLanguage(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Name is the language name recorded on symbols and in statistics.
func (l Language) Name() string {
	switch l {
	case LangTSX:
		return string(LangTypeScript)
	case LangJSX:
		return string(LangJavaScript)
	default:
		return string(l)
	}
}
