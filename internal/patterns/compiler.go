// Package patterns implements the PatternCompiler: parsing a pattern
// string with the same grammar as the code it will be matched against, and caching the
// result so that a pattern repeated across a request (or across requests) is parsed once.
package patterns

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/langtable"
	"github.com/standardbeagle/sgmcp/internal/types"
)

var (
	singleMetaRe   = regexp.MustCompile(`^\$([A-Z_][A-Z0-9_]*)$`)
	variadicMetaRe = regexp.MustCompile(`^\$\$\$([A-Z_][A-Z0-9_]*)$`)
)

type cacheKey struct {
	language string
	source   string
}

// Compiler compiles and caches Patterns. Safe for concurrent use; the underlying LRU
// serializes its own mutations, and a cache miss parses independently per caller (a
// pattern parsed twice concurrently just costs one redundant parse, never a data race).
type Compiler struct {
	cache *lru.Cache[cacheKey, *types.Pattern]
}

// New builds a Compiler whose cache holds at most capacity compiled patterns, evicting
// least-recently-used entries once full.
func New(capacity int) (*Compiler, error) {
	cache, err := lru.New[cacheKey, *types.Pattern](capacity)
	if err != nil {
		return nil, fmt.Errorf("patterns: building LRU cache: %w", err)
	}
	return &Compiler{cache: cache}, nil
}

// Compile returns the Pattern for (language, source), parsing and caching it on first
// use. language must already be canonicalized (internal/langtable.Canonicalize).
func (c *Compiler) Compile(language, source string) (*types.Pattern, error) {
	if source == "" {
		return nil, cerrors.New(cerrors.InvalidPattern, "pattern source must not be empty")
	}
	key := cacheKey{language: language, source: source}
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}

	if !langtable.HasGrammar(language) {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "no grammar bound for language %q", language)
	}
	parser, ok := langtable.NewParser(language)
	if !ok {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "failed to construct parser for language %q", language)
	}
	defer parser.Close()

	tree := parser.Parse([]byte(source), nil)
	if tree == nil {
		return nil, cerrors.New(cerrors.InvalidPattern, "pattern failed to parse under %q grammar", language)
	}
	defer tree.Close()

	root := meaningfulRoot(tree.RootNode())
	if root == nil || root.HasError() {
		return nil, cerrors.New(cerrors.InvalidPattern, "pattern is not valid %q syntax", language)
	}

	pattern := &types.Pattern{
		Language: language,
		Source:   source,
		RootKind: root.Kind(),
		Root:     buildPatternNode(root, []byte(source)),
	}
	c.cache.Add(key, pattern)
	return pattern, nil
}

// CompileContext compiles a Pattern(p) rule's {context, selector} form: it
// parses context as a full document and uses the first pre-order descendant (including
// the root) whose grammar Kind equals selector as the pattern's actual root — letting a
// pattern that can't stand alone (e.g. an object property) be written inside a valid
// surrounding snippet, the same way the bare-source path uses meaningfulRoot for the
// common case.
func (c *Compiler) CompileContext(language, context, selector string) (*types.Pattern, error) {
	if context == "" || selector == "" {
		return nil, cerrors.New(cerrors.InvalidPattern, "context and selector must both be set")
	}
	if !langtable.HasGrammar(language) {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "no grammar bound for language %q", language)
	}
	parser, ok := langtable.NewParser(language)
	if !ok {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "failed to construct parser for language %q", language)
	}
	defer parser.Close()

	src := []byte(context)
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, cerrors.New(cerrors.InvalidPattern, "context failed to parse under %q grammar", language)
	}
	defer tree.Close()

	selected := findByKind(tree.RootNode(), selector)
	if selected == nil {
		return nil, cerrors.New(cerrors.InvalidPattern, "no node of kind %q found in context", selector)
	}

	return &types.Pattern{
		Language: language,
		Source:   context,
		RootKind: selected.Kind(),
		Root:     buildPatternNode(selected, src),
	}, nil
}

func findByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == kind {
		return n
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if found := findByKind(n.NamedChild(uint(i)), kind); found != nil {
			return found
		}
	}
	return nil
}

// buildPatternNode copies a Tree-sitter node (and its named children, recursively) into
// a PatternNode tree that owns no cgo state, detecting $NAME/$$$NAME metavariable leaves
// by their literal text.
func buildPatternNode(n *tree_sitter.Node, src []byte) *types.PatternNode {
	named := int(n.NamedChildCount())
	if named == 0 {
		text := string(src[n.StartByte():n.EndByte()])
		pn := &types.PatternNode{Kind: n.Kind(), Text: text}
		if m := variadicMetaRe.FindStringSubmatch(text); m != nil {
			pn.Meta, pn.MetaName = types.MetaVariadic, m[1]
		} else if m := singleMetaRe.FindStringSubmatch(text); m != nil {
			pn.Meta, pn.MetaName = types.MetaSingle, m[1]
		}
		return pn
	}

	children := make([]*types.PatternNode, 0, named)
	for i := 0; i < named; i++ {
		children = append(children, buildPatternNode(n.NamedChild(uint(i)), src))
	}
	return &types.PatternNode{Kind: n.Kind(), Children: children}
}

// Len reports the number of patterns currently cached, for tests and diagnostics.
func (c *Compiler) Len() int { return c.cache.Len() }

// meaningfulRoot descends through single-child wrapper nodes (a grammar's top-level
// "source_file"/"program"/expression-statement chain around a bare expression pattern)
// to the first node that itself has more than one child, or is a leaf.
func meaningfulRoot(n *tree_sitter.Node) *tree_sitter.Node {
	for n != nil && n.ChildCount() == 1 && n.NamedChildCount() == 1 {
		n = n.NamedChild(0)
	}
	return n
}
