// Package langtable is the canonical registry of language tags: which tags the server
// recognizes, what their aliases and file extensions are, and which of them have a bound
// Tree-sitter grammar.
package langtable

import (
	"unsafe"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Entry describes one canonical language: its bound grammar constructor (nil if the
// tag is recognized but has no grammar), its file extensions, and its aliases.
type Entry struct {
	Tag        string
	Extensions []string
	Aliases    []string
	grammar    func() unsafe.Pointer
}

var registry = []Entry{
	{Tag: "go", Extensions: []string{".go"}, Aliases: []string{"golang"}, grammar: tree_sitter_go.Language},
	{Tag: "javascript", Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, Aliases: []string{"js"}, grammar: tree_sitter_javascript.Language},
	{Tag: "typescript", Extensions: []string{".ts"}, Aliases: []string{"ts"}, grammar: tree_sitter_typescript.LanguageTypescript},
	{Tag: "tsx", Extensions: []string{".tsx"}, Aliases: nil, grammar: tree_sitter_typescript.LanguageTSX},
	{Tag: "python", Extensions: []string{".py"}, Aliases: []string{"py"}, grammar: tree_sitter_python.Language},
	{Tag: "rust", Extensions: []string{".rs"}, Aliases: []string{"rs"}, grammar: tree_sitter_rust.Language},
	{Tag: "cpp", Extensions: []string{".cpp", ".cc", ".cxx", ".h", ".hpp"}, Aliases: []string{"c++"}, grammar: tree_sitter_cpp.Language},
	{Tag: "c", Extensions: []string{".c"}, Aliases: nil, grammar: tree_sitter_cpp.Language},
	{Tag: "java", Extensions: []string{".java"}, Aliases: nil, grammar: tree_sitter_java.Language},
	{Tag: "csharp", Extensions: []string{".cs"}, Aliases: []string{"c#", "cs"}, grammar: tree_sitter_csharp.Language},
	{Tag: "php", Extensions: []string{".php", ".phtml"}, Aliases: nil, grammar: tree_sitter_php.LanguagePHP},
	{Tag: "zig", Extensions: []string{".zig"}, Aliases: nil, grammar: tree_sitter_zig.Language},

	// Recognized so a typo reports UnsupportedLanguage with a suggestion rather than a
	// plain "unknown tag" — but without a bound grammar, compile() always fails for them.
	{Tag: "ruby", Extensions: []string{".rb"}, Aliases: []string{"rb"}},
	{Tag: "kotlin", Extensions: []string{".kt", ".kts"}, Aliases: []string{"kt"}},
	{Tag: "swift", Extensions: []string{".swift"}, Aliases: nil},
	{Tag: "bash", Extensions: []string{".sh", ".bash"}, Aliases: []string{"shell", "sh"}},
	{Tag: "html", Extensions: []string{".html", ".htm"}, Aliases: nil},
	{Tag: "css", Extensions: []string{".css"}, Aliases: nil},
	{Tag: "lua", Extensions: []string{".lua"}, Aliases: nil},
	{Tag: "scala", Extensions: []string{".scala"}, Aliases: nil},
}

var (
	byTag  map[string]*Entry
	byExt  map[string]*Entry
)

func init() {
	byTag = make(map[string]*Entry, len(registry)*2)
	byExt = make(map[string]*Entry, len(registry)*2)
	for i := range registry {
		e := &registry[i]
		byTag[e.Tag] = e
		for _, alias := range e.Aliases {
			byTag[alias] = e
		}
		for _, ext := range e.Extensions {
			byExt[ext] = e
		}
	}
}

// Canonicalize resolves an alias (or canonical tag) to its canonical tag. The ok return
// is false for a tag the table has never heard of.
func Canonicalize(tag string) (string, bool) {
	e, ok := byTag[tag]
	if !ok {
		return "", false
	}
	return e.Tag, true
}

// ForExtension resolves a file extension (including the leading dot) to a canonical
// language tag.
func ForExtension(ext string) (string, bool) {
	e, ok := byExt[ext]
	if !ok {
		return "", false
	}
	return e.Tag, true
}

// HasGrammar reports whether tag (already canonical) has a bound Tree-sitter grammar.
func HasGrammar(tag string) bool {
	e, ok := byTag[tag]
	return ok && e.grammar != nil
}

// KnownTags returns every canonical tag the table recognizes, grammar-bound or not —
// used by list_languages and by internal/didyoumean's suggestion pool.
func KnownTags() []string {
	tags := make([]string, 0, len(registry))
	for _, e := range registry {
		tags = append(tags, e.Tag)
	}
	return tags
}

// Entries returns every registered language entry, for the list_languages tool. The
// returned Entry values carry no grammar constructor access of their own; callers use
// HasGrammar(e.Tag) to report bound-ness.
func Entries() []Entry {
	out := make([]Entry, len(registry))
	copy(out, registry)
	return out
}

// NewParser constructs a ready-to-use *tree_sitter.Parser bound to tag's grammar.
// Returns (nil, false) if tag is unknown or has no bound grammar.
func NewParser(tag string) (*tree_sitter.Parser, bool) {
	e, ok := byTag[tag]
	if !ok || e.grammar == nil {
		return nil, false
	}
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(e.grammar())
	if err := parser.SetLanguage(language); err != nil {
		return nil, false
	}
	return parser, true
}
