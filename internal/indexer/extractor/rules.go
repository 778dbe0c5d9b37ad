package extractor

// rule describes how one declaration node kind becomes a symbol.
type rule struct {
	// kind is the emitted symbol kind. Containers that only qualify their
	// members (a Rust impl block, a C++ namespace) leave it empty.
	kind Kind
	// memberKind replaces kind for declarations found in a type body, so a
	// Python function inside a class is a method.
	memberKind Kind
	// kindOf derives the kind from the node itself when set.
	kindOf func(n Node) Kind

	// nameField holds the declaration name; "name" when empty.
	nameField string
	// name resolves the name when a plain field lookup is not enough.
	name func(n Node, src []byte) string
	// fallbackName is used when no name is found. Without one the node is
	// skipped together with its body.
	fallbackName string
	// require names a field that must be present, e.g. the body of a C
	// struct, which tells a definition from a forward declaration.
	require string

	// body is the field walked with this declaration's qualified name as
	// prefix.
	body string
	// bodySelf walks the node itself when body is absent (file scoped C#
	// namespaces).
	bodySelf bool
	// members marks body declarations as members of a type.
	members bool

	// unwrap names a field holding the real declaration. The inner node's
	// rule applies but the symbol spans the outer node, as with Python
	// decorators.
	unwrap string
}

// binding describes const/var style declarations, which are indexed only
// when their value makes them interesting.
type binding struct {
	// declarator is the child kind holding each name/value pair. Empty
	// means the node itself is the single declarator.
	declarator string
	nameField  string
	valueField string
	// requireValue skips declarators without an initializer.
	requireValue bool
	// exported treats every binding as exported.
	exported bool
	// functions are value kinds indexed as functions even when not exported.
	functions map[string]bool
	// trivial are literal value kinds never indexed as variables.
	trivial map[string]bool
}

type grammar struct {
	separator string
	rules     map[string]rule
	// passthrough kinds are walked transparently with the current prefix.
	passthrough map[string]bool
	// exports are passthrough kinds whose direct children are exported.
	exports  map[string]bool
	bindings map[string]*binding
}

func setOf(kinds ...string) map[string]bool {
	s := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

func rulesFor(r rule, kinds ...string) map[string]rule {
	m := make(map[string]rule, len(kinds))
	for _, k := range kinds {
		m[k] = r
	}
	return m
}

func merge(maps ...map[string]rule) map[string]rule {
	out := make(map[string]rule)
	for _, m := range maps {
		for k, r := range m {
			out[k] = r
		}
	}
	return out
}

var grammars = map[Language]*grammar{}

func init() {
	js := jsGrammar()
	grammars[LangTypeScript] = js
	grammars[LangTSX] = js
	grammars[LangJavaScript] = js
	grammars[LangJSX] = js
	grammars[LangPython] = pythonGrammar()
	grammars[LangRust] = rustGrammar()
	grammars[LangGo] = goGrammar()
	grammars[LangJava] = javaGrammar()
	grammars[LangCSharp] = csharpGrammar()
	grammars[LangRuby] = rubyGrammar()
	grammars[LangC] = cGrammar()
	grammars[LangCpp] = cppGrammar()
	grammars[LangPHP] = phpGrammar()
	grammars[LangScala] = scalaGrammar()
}

func jsGrammar() *grammar {
	declarations := &binding{
		declarator:   "variable_declarator",
		nameField:    "name",
		valueField:   "value",
		requireValue: true,
		functions:    setOf("arrow_function", "function", "function_expression", "generator_function"),
		trivial:      setOf("string", "number", "true", "false", "null", "undefined"),
	}
	return &grammar{
		separator: ".",
		rules: merge(
			rulesFor(rule{kind: KindFunction}, "function_declaration", "generator_function_declaration"),
			rulesFor(rule{kind: KindClass, body: "body", members: true}, "class_declaration", "abstract_class_declaration"),
			rulesFor(rule{kind: KindMethod}, "method_definition"),
			rulesFor(rule{kind: KindInterface}, "interface_declaration"),
			rulesFor(rule{kind: KindType}, "type_alias_declaration"),
			rulesFor(rule{kind: KindEnum}, "enum_declaration"),
			// namespace Foo { ... } only qualifies its members.
			rulesFor(rule{body: "body"}, "internal_module"),
		),
		passthrough: setOf("export_statement", "expression_statement"),
		exports:     setOf("export_statement"),
		bindings: map[string]*binding{
			"lexical_declaration":  declarations,
			"variable_declaration": declarations,
		},
	}
}

func pythonGrammar() *grammar {
	return &grammar{
		separator: ".",
		rules: merge(
			rulesFor(rule{kind: KindFunction, memberKind: KindMethod}, "function_definition", "async_function_definition"),
			rulesFor(rule{kind: KindClass, body: "body", members: true}, "class_definition"),
			rulesFor(rule{unwrap: "definition"}, "decorated_definition"),
		),
	}
}

func rustGrammar() *grammar {
	return &grammar{
		separator: "::",
		rules: merge(
			rulesFor(rule{kind: KindFunction, memberKind: KindMethod}, "function_item"),
			rulesFor(rule{kind: KindStruct}, "struct_item"),
			rulesFor(rule{kind: KindEnum}, "enum_item"),
			rulesFor(rule{kind: KindTrait}, "trait_item"),
			rulesFor(rule{kind: KindType}, "type_item"),
			rulesFor(rule{nameField: "type", body: "body", members: true}, "impl_item"),
			rulesFor(rule{kind: KindModule, body: "body"}, "mod_item"),
		),
	}
}

func goGrammar() *grammar {
	return &grammar{
		separator: ".",
		rules: merge(
			rulesFor(rule{kind: KindFunction}, "function_declaration"),
			rulesFor(rule{kind: KindMethod, name: goMethodName}, "method_declaration"),
			rulesFor(rule{kindOf: goTypeKind}, "type_spec"),
			rulesFor(rule{kind: KindType}, "type_alias"),
		),
		passthrough: setOf("type_declaration"),
	}
}

func javaGrammar() *grammar {
	return &grammar{
		separator: ".",
		rules: merge(
			rulesFor(rule{kind: KindClass, body: "body", members: true}, "class_declaration", "record_declaration"),
			rulesFor(rule{kind: KindInterface, body: "body", members: true}, "interface_declaration"),
			rulesFor(rule{kind: KindInterface}, "annotation_type_declaration"),
			rulesFor(rule{kind: KindEnum}, "enum_declaration"),
			rulesFor(rule{kind: KindMethod}, "method_declaration"),
			rulesFor(rule{kind: KindFunction}, "constructor_declaration"),
		),
	}
}

func csharpGrammar() *grammar {
	return &grammar{
		separator: ".",
		rules: merge(
			rulesFor(rule{body: "body", bodySelf: true}, "namespace_declaration", "file_scoped_namespace_declaration"),
			rulesFor(rule{kind: KindClass, body: "body", members: true}, "class_declaration", "record_declaration"),
			rulesFor(rule{kind: KindStruct, body: "body", members: true}, "struct_declaration"),
			rulesFor(rule{kind: KindInterface}, "interface_declaration"),
			rulesFor(rule{kind: KindEnum}, "enum_declaration"),
			rulesFor(rule{kind: KindMethod}, "method_declaration", "local_function_statement"),
			rulesFor(rule{kind: KindFunction}, "constructor_declaration"),
		),
	}
}

func rubyGrammar() *grammar {
	return &grammar{
		separator: "::",
		rules: merge(
			rulesFor(rule{kind: KindClass, body: "body", members: true}, "class", "singleton_class"),
			rulesFor(rule{kind: KindModule, body: "body"}, "module"),
			rulesFor(rule{kind: KindMethod}, "method", "singleton_method"),
		),
	}
}

func cGrammar() *grammar {
	return &grammar{
		separator: ".",
		rules: merge(
			rulesFor(rule{kind: KindFunction, name: declaratorName}, "function_definition"),
			rulesFor(rule{kind: KindStruct, require: "body"}, "struct_specifier", "union_specifier"),
			rulesFor(rule{kind: KindEnum, require: "body"}, "enum_specifier"),
			rulesFor(rule{kind: KindType, name: declaratorName}, "type_definition"),
		),
		passthrough: setOf("declaration"),
	}
}

func cppGrammar() *grammar {
	return &grammar{
		separator: "::",
		rules: merge(
			rulesFor(rule{body: "body", fallbackName: "anonymous"}, "namespace_definition"),
			rulesFor(rule{kind: KindClass, require: "body", body: "body", members: true}, "class_specifier"),
			rulesFor(rule{kind: KindStruct, require: "body", body: "body", members: true}, "struct_specifier", "union_specifier"),
			rulesFor(rule{kind: KindFunction, memberKind: KindMethod, name: declaratorName}, "function_definition"),
			rulesFor(rule{kind: KindEnum, require: "body"}, "enum_specifier"),
			rulesFor(rule{kind: KindType}, "alias_declaration", "type_alias_declaration"),
			rulesFor(rule{kind: KindType, name: declaratorName}, "type_definition"),
		),
		passthrough: setOf("template_declaration", "declaration", "linkage_specification", "declaration_list"),
	}
}

func phpGrammar() *grammar {
	return &grammar{
		separator: "::",
		rules: merge(
			rulesFor(rule{kind: KindFunction}, "function_definition"),
			rulesFor(rule{kind: KindClass, body: "body", members: true},
				"class_declaration", "abstract_class_declaration", "final_class_declaration"),
			rulesFor(rule{kind: KindInterface}, "interface_declaration"),
			rulesFor(rule{kind: KindTrait, body: "body", members: true}, "trait_declaration"),
			rulesFor(rule{kind: KindMethod}, "method_declaration"),
			rulesFor(rule{kind: KindEnum}, "enum_declaration"),
		),
		passthrough: setOf("program", "php_text", "compound_statement", "namespace_definition"),
	}
}

func scalaGrammar() *grammar {
	values := &binding{
		nameField:  "pattern",
		valueField: "value",
		exported:   true,
		functions:  setOf("lambda_expression"),
		trivial: setOf("string", "integer_literal", "floating_point_literal",
			"boolean_literal", "character_literal", "null_literal"),
	}
	return &grammar{
		separator: ".",
		rules: merge(
			rulesFor(rule{kind: KindClass, body: "body", members: true}, "class_definition", "case_class_definition"),
			rulesFor(rule{kind: KindModule, body: "body", members: true}, "object_definition", "case_object_definition"),
			rulesFor(rule{kind: KindTrait}, "trait_definition"),
			rulesFor(rule{kind: KindFunction, memberKind: KindMethod}, "function_definition"),
			rulesFor(rule{kind: KindType}, "type_definition"),
		),
		bindings: map[string]*binding{
			"val_definition": values,
			"var_definition": values,
		},
	}
}

func goTypeKind(n Node) Kind {
	t := n.ChildByFieldName("type")
	if t == nil {
		return KindType
	}
	switch t.Kind() {
	case "struct_type":
		return KindStruct
	case "interface_type":
		return KindInterface
	default:
		return KindType
	}
}

// goMethodName qualifies a method with its receiver type: "Server.Start".
func goMethodName(n Node, src []byte) string {
	name := text(n.ChildByFieldName("name"), src)
	if name == "" {
		return ""
	}
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return name
	}
	for i := 0; i < recv.ChildCount(); i++ {
		param := recv.Child(i)
		if param == nil || param.Kind() != "parameter_declaration" {
			continue
		}
		if typeName := receiverTypeName(param.ChildByFieldName("type"), src); typeName != "" {
			return typeName + "." + name
		}
	}
	return name
}

func receiverTypeName(n Node, src []byte) string {
	for n != nil {
		switch n.Kind() {
		case "type_identifier":
			return text(n, src)
		case "pointer_type":
			if n.ChildCount() == 0 {
				return ""
			}
			n = n.Child(n.ChildCount() - 1)
		case "generic_type":
			n = n.ChildByFieldName("type")
		default:
			return ""
		}
	}
	return ""
}

// declaratorName follows a C/C++ declarator chain down to the declared
// identifier, so "static int *parse_header(...)" yields "parse_header".
func declaratorName(n Node, src []byte) string {
	d := n.ChildByFieldName("declarator")
	for depth := 0; d != nil && depth < 16; depth++ {
		switch d.Kind() {
		case "identifier", "field_identifier", "type_identifier",
			"qualified_identifier", "destructor_name", "operator_name":
			return text(d, src)
		case "function_declarator", "pointer_declarator", "reference_declarator",
			"array_declarator", "parenthesized_declarator",
			"abstract_declarator", "abstract_function_declarator":
			next := d.ChildByFieldName("declarator")
			if next == nil && d.Kind() == "parenthesized_declarator" && d.ChildCount() > 1 {
				next = d.Child(1)
			}
			d = next
		default:
			return ""
		}
	}
	return ""
}
