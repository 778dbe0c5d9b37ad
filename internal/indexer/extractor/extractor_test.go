package extractor

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(symbols []Symbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.Name
	}
	return out
}

func find(t *testing.T, symbols []Symbol, name string) Symbol {
	t.Helper()
	for _, s := range symbols {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("symbol %q not found in %v", name, names(symbols))
	return Symbol{}
}

func TestExtractPythonClassAndDecorator(t *testing.T) {
	src := `class AuthService:
    def login(self, user, password):
        return check(user, password)

@cached
def read_file(path):
    return open(path).read()
`
	loginSrc := "def login(self, user, password):\n        return check(user, password)"
	readSrc := "def read_file(path):\n    return open(path).read()"
	root := node("module", src,
		child(node("class_definition", "class AuthService:\n    "+loginSrc,
			field("name", node("identifier", "AuthService")),
			field("body", node("block", loginSrc,
				child(node("function_definition", loginSrc,
					field("name", node("identifier", "login")),
				)),
			)),
		)),
		child(node("decorated_definition", "@cached\n"+readSrc,
			field("definition", node("function_definition", readSrc,
				field("name", node("identifier", "read_file")),
			)),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("auth.py", []byte(src), LangPython)

	require.Equal(t, []string{"AuthService", "AuthService.login", "read_file"}, names(symbols))

	class := find(t, symbols, "AuthService")
	assert.Equal(t, KindClass, class.Kind)
	assert.Equal(t, 1, class.StartLine)
	assert.Equal(t, 3, class.EndLine)
	assert.Equal(t, "python", class.Language)
	assert.Equal(t, "auth.py", class.FilePath)

	method := find(t, symbols, "AuthService.login")
	assert.Equal(t, KindMethod, method.Kind)
	assert.Equal(t, 2, method.StartLine)
	assert.Equal(t, loginSrc, method.Content)

	fn := find(t, symbols, "read_file")
	assert.Equal(t, KindFunction, fn.Kind)
	assert.Equal(t, 5, fn.StartLine)
	assert.Equal(t, 7, fn.EndLine)
	assert.True(t, strings.HasPrefix(fn.Content, "@cached"))
}

func TestExtractJavaScriptBindings(t *testing.T) {
	src := `export const API_URL = "https://example.com";
export const client = createClient(API_URL);
const helper = () => 1;
const table = { a: 1 };
export function main() {}
namespace Tools { function register() {} }
`
	declarator := func(name, value, valueKind string) *fakeNode {
		return node("variable_declarator", name+" = "+value,
			field("name", node("identifier", name)),
			field("value", node(valueKind, value)),
		)
	}
	root := node("program", src,
		child(node("export_statement", `export const API_URL = "https://example.com";`,
			child(node("lexical_declaration", `const API_URL = "https://example.com";`,
				child(declarator("API_URL", `"https://example.com"`, "string")),
			)),
		)),
		child(node("export_statement", "export const client = createClient(API_URL);",
			child(node("lexical_declaration", "const client = createClient(API_URL);",
				child(declarator("client", "createClient(API_URL)", "call_expression")),
			)),
		)),
		child(node("lexical_declaration", "const helper = () => 1;",
			child(declarator("helper", "() => 1", "arrow_function")),
		)),
		child(node("lexical_declaration", "const table = { a: 1 };",
			child(declarator("table", "{ a: 1 }", "object")),
		)),
		child(node("export_statement", "export function main() {}",
			child(node("function_declaration", "function main() {}",
				field("name", node("identifier", "main")),
			)),
		)),
		child(node("expression_statement", "namespace Tools { function register() {} }",
			child(node("internal_module", "namespace Tools { function register() {} }",
				field("name", node("identifier", "Tools")),
				field("body", node("statement_block", "{ function register() {} }",
					child(node("function_declaration", "function register() {}",
						field("name", node("identifier", "register")),
					)),
				)),
			)),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("api.ts", []byte(src), LangTypeScript)

	assert.Equal(t, []string{"client", "helper", "main", "Tools.register"}, names(symbols))
	assert.Equal(t, KindVariable, find(t, symbols, "client").Kind)
	assert.Equal(t, KindFunction, find(t, symbols, "helper").Kind)
	assert.Equal(t, "helper = () => 1", find(t, symbols, "helper").Content)
	assert.Equal(t, KindFunction, find(t, symbols, "Tools.register").Kind)
}

func TestExtractRustImplAndModule(t *testing.T) {
	src := `fn main() {}
impl Engine {
    fn search(&self) {}
}
mod util {
    fn helper() {}
}
`
	root := node("source_file", src,
		child(node("function_item", "fn main() {}",
			field("name", node("identifier", "main")),
		)),
		child(node("impl_item", "impl Engine {\n    fn search(&self) {}\n}",
			field("type", node("type_identifier", "Engine")),
			field("body", node("declaration_list", "{\n    fn search(&self) {}\n}",
				child(node("function_item", "fn search(&self) {}",
					field("name", node("identifier", "search")),
				)),
			)),
		)),
		child(node("mod_item", "mod util {\n    fn helper() {}\n}",
			field("name", node("identifier", "util")),
			field("body", node("declaration_list", "{\n    fn helper() {}\n}",
				child(node("function_item", "fn helper() {}",
					field("name", node("identifier", "helper")),
				)),
			)),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("lib.rs", []byte(src), LangRust)

	assert.Equal(t, []string{"main", "Engine::search", "util", "util::helper"}, names(symbols))
	assert.Equal(t, KindMethod, find(t, symbols, "Engine::search").Kind)
	assert.Equal(t, KindModule, find(t, symbols, "util").Kind)
	assert.Equal(t, KindFunction, find(t, symbols, "util::helper").Kind)
	assert.Equal(t, 3, find(t, symbols, "Engine::search").StartLine)
}

func TestExtractGoTypesAndMethods(t *testing.T) {
	src := `type Server struct{}
type Handler interface{}
func (s *Server) Start() {}
func run() {}
`
	root := node("source_file", src,
		child(node("type_declaration", "type Server struct{}",
			child(node("type_spec", "Server struct{}",
				field("name", node("type_identifier", "Server")),
				field("type", node("struct_type", "struct{}")),
			)),
		)),
		child(node("type_declaration", "type Handler interface{}",
			child(node("type_spec", "Handler interface{}",
				field("name", node("type_identifier", "Handler")),
				field("type", node("interface_type", "interface{}")),
			)),
		)),
		child(node("method_declaration", "func (s *Server) Start() {}",
			field("receiver", node("parameter_list", "(s *Server)",
				child(node("parameter_declaration", "s *Server",
					field("name", node("identifier", "s")),
					field("type", node("pointer_type", "*Server",
						child(node("type_identifier", "Server")),
					)),
				)),
			)),
			field("name", node("field_identifier", "Start")),
		)),
		child(node("function_declaration", "func run() {}",
			field("name", node("identifier", "run")),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("server.go", []byte(src), LangGo)

	assert.Equal(t, []string{"Server", "Handler", "Server.Start", "run"}, names(symbols))
	assert.Equal(t, KindStruct, find(t, symbols, "Server").Kind)
	assert.Equal(t, KindInterface, find(t, symbols, "Handler").Kind)
	assert.Equal(t, KindMethod, find(t, symbols, "Server.Start").Kind)
}

func TestExtractCRequiresDefinitionBody(t *testing.T) {
	src := `struct Point;
struct Vec { int x; };
static int *parse_header(char *buf) { return 0; }
`
	root := node("translation_unit", src,
		child(node("declaration", "struct Point;",
			child(node("struct_specifier", "struct Point",
				field("name", node("type_identifier", "Point")),
			)),
		)),
		child(node("struct_specifier", "struct Vec { int x; }",
			field("name", node("type_identifier", "Vec")),
			field("body", node("field_declaration_list", "{ int x; }")),
		)),
		child(node("function_definition", "static int *parse_header(char *buf) { return 0; }",
			field("declarator", node("pointer_declarator", "*parse_header(char *buf)",
				field("declarator", node("function_declarator", "parse_header(char *buf)",
					field("declarator", node("identifier", "parse_header")),
				)),
			)),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("parse.c", []byte(src), LangC)

	assert.Equal(t, []string{"Vec", "parse_header"}, names(symbols))
	assert.Equal(t, KindStruct, find(t, symbols, "Vec").Kind)
	assert.Equal(t, KindFunction, find(t, symbols, "parse_header").Kind)
}

func TestExtractCppAnonymousNamespace(t *testing.T) {
	src := `namespace { class Cache { void evict() {} }; }
`
	root := node("translation_unit", src,
		child(node("namespace_definition", "namespace { class Cache { void evict() {} }; }",
			field("body", node("declaration_list", "{ class Cache { void evict() {} }; }",
				child(node("class_specifier", "class Cache { void evict() {} }",
					field("name", node("type_identifier", "Cache")),
					field("body", node("field_declaration_list", "{ void evict() {} }",
						child(node("function_definition", "void evict() {}",
							field("declarator", node("function_declarator", "evict()",
								field("declarator", node("field_identifier", "evict")),
							)),
						)),
					)),
				)),
			)),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("cache.cpp", []byte(src), LangCpp)

	assert.Equal(t, []string{"anonymous::Cache", "anonymous::Cache::evict"}, names(symbols))
	assert.Equal(t, KindMethod, find(t, symbols, "anonymous::Cache::evict").Kind)
}

func TestExtractScalaValues(t *testing.T) {
	src := `object Config {
  val port = 8080
  val routes = buildRoutes()
}
`
	root := node("compilation_unit", src,
		child(node("object_definition", strings.TrimSuffix(src, "\n"),
			field("name", node("identifier", "Config")),
			field("body", node("template_body", "{\n  val port = 8080\n  val routes = buildRoutes()\n}",
				child(node("val_definition", "val port = 8080",
					field("pattern", node("identifier", "port")),
					field("value", node("integer_literal", "8080")),
				)),
				child(node("val_definition", "val routes = buildRoutes()",
					field("pattern", node("identifier", "routes")),
					field("value", node("call_expression", "buildRoutes()")),
				)),
			)),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("Config.scala", []byte(src), LangScala)

	assert.Equal(t, []string{"Config", "Config.routes"}, names(symbols))
	assert.Equal(t, KindModule, find(t, symbols, "Config").Kind)
	assert.Equal(t, KindVariable, find(t, symbols, "Config.routes").Kind)
}

func TestExtractFallsBackToChunks(t *testing.T) {
	src := "line one\nline two\n"

	tests := []struct {
		name   string
		parser *fakeParser
		lang   Language
	}{
		{"parse error", &fakeParser{err: errParse}, LangPython},
		{"nil tree", &fakeParser{}, LangPython},
		{"no symbols", treeOf(src, node("module", src)), LangPython},
		{"parser panic", &fakeParser{panic: true}, LangGo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbols := New(tt.parser).Extract("notes.py", []byte(src), tt.lang)

			require.Len(t, symbols, 1)
			assert.Equal(t, KindChunk, symbols[0].Kind)
			assert.Equal(t, "lines 1-2", symbols[0].Name)
			assert.Equal(t, "line one\nline two", symbols[0].Content)
		})
	}
}

func TestExtractUnknownLanguageSkipsParser(t *testing.T) {
	p := &fakeParser{err: errParse}

	symbols := New(p).Extract("x.unknown", []byte("hello"), Language("cobol"))

	require.Len(t, symbols, 1)
	assert.Equal(t, 0, p.calls)
}

func TestExtractEmptyFile(t *testing.T) {
	assert.Empty(t, New(&fakeParser{err: errParse}).Extract("empty.py", nil, LangPython))
}

func TestExtractSanitizesInvalidUTF8(t *testing.T) {
	src := []byte("valid\xff\xfe text\n")

	symbols := New(&fakeParser{err: errParse}).Extract("bad.py", src, LangPython)

	require.Len(t, symbols, 1)
	assert.True(t, utf8.ValidString(symbols[0].Content))
	assert.Contains(t, symbols[0].Content, "text")
}

func TestExtractTruncatesContent(t *testing.T) {
	body := strings.Repeat("é", MaxContentBytes)
	src := "def big():\n    return '" + body + "'\n"
	root := node("module", src,
		child(node("function_definition", strings.TrimSuffix(src, "\n"),
			field("name", node("identifier", "big")),
		)),
	)

	symbols := New(treeOf(src, root)).Extract("big.py", []byte(src), LangPython)

	require.Len(t, symbols, 1)
	assert.LessOrEqual(t, len(symbols[0].Content), MaxContentBytes)
	assert.True(t, utf8.ValidString(symbols[0].Content))
	assert.Equal(t, 2, symbols[0].EndLine)
}

func TestChunkByLinesWindows(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 120; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}

	chunks := ChunkByLines("big.txt", []byte(b.String()), "go")

	require.Equal(t, []string{"lines 1-50", "lines 41-90", "lines 81-120"}, names(chunks))
	assert.Equal(t, 41, chunks[1].StartLine)
	assert.Equal(t, 90, chunks[1].EndLine)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "line 1\n"))
	assert.True(t, strings.HasSuffix(chunks[0].Content, "line 50"))
	assert.Equal(t, "go", chunks[2].Language)
}

func TestChunkByLinesEdges(t *testing.T) {
	assert.Empty(t, ChunkByLines("e", nil, "go"))

	one := ChunkByLines("f", []byte(strings.Repeat("x\n", 50)), "go")
	assert.Equal(t, []string{"lines 1-50"}, names(one))

	two := ChunkByLines("f", []byte(strings.Repeat("x\n", 51)), "go")
	assert.Equal(t, []string{"lines 1-50", "lines 41-51"}, names(two))

	crlf := ChunkByLines("f", []byte("a\r\nb\r\n"), "go")
	require.Len(t, crlf, 1)
	assert.Equal(t, "a\nb", crlf[0].Content)

	noNewline := ChunkByLines("f", []byte("only"), "go")
	assert.Equal(t, []string{"lines 1-1"}, names(noNewline))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"src/app.ts", LangTypeScript, true},
		{"src/App.TSX", LangTSX, true},
		{"lib/index.mjs", LangJavaScript, true},
		{"tool.pyw", LangPython, true},
		{"main.rs", LangRust, true},
		{"Rakefile.rake", LangRuby, true},
		{"include/x.hpp", LangCpp, true},
		{"x.h", LangC, true},
		{"index.php8", LangPHP, true},
		{"build.sc", LangScala, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := DetectLanguage(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "typescript", LangTSX.Name())
	assert.Equal(t, "javascript", LangJSX.Name())
	assert.Equal(t, "go", LangGo.Name())
}

func TestSymbolIndexText(t *testing.T) {
	s := Symbol{Name: "login", Kind: KindFunction, Content: "def login(user)"}
	assert.Equal(t, "login function def login(user)", s.IndexText())
}
