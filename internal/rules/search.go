package rules

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/langtable"
	"github.com/standardbeagle/sgmcp/internal/lineindex"
	"github.com/standardbeagle/sgmcp/internal/replacer"
	"github.com/standardbeagle/sgmcp/internal/types"
)

// FindAll parses content under language and returns every outermost node matching rule,
// in document order — the rule-engine counterpart of internal/scanner.FindAll, since a
// Rule (unlike a bare Pattern) has no single grammar kind to pre-filter on and must be
// tried against every node.
func (e *Evaluator) FindAll(rule types.Rule, language string, content []byte) ([]types.MatchResult, error) {
	if !langtable.HasGrammar(language) {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "no grammar bound for language %q", language)
	}
	parser, ok := langtable.NewParser(language)
	if !ok {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "failed to construct parser for language %q", language)
	}
	defer parser.Close()

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, cerrors.New(cerrors.FileIOError, "content failed to parse under %q grammar", language)
	}
	defer tree.Close()

	idx := lineindex.Build(content)
	var results []types.MatchResult
	var walk func(n *tree_sitter.Node) error
	walk = func(n *tree_sitter.Node) error {
		if n == nil {
			return nil
		}
		captures, ok, err := e.Eval(rule, n, language, content, nil)
		if err != nil {
			return err
		}
		if ok {
			results = append(results, toMatchResult(n, content, idx, captures))
			return nil // outermost match wins: don't descend into this subtree
		}
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			if err := walk(n.NamedChild(uint(i))); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tree.RootNode()); err != nil {
		return nil, err
	}
	return results, nil
}

func toMatchResult(n *tree_sitter.Node, content []byte, idx *lineindex.Index, captures map[string]string) types.MatchResult {
	startLine, startCol := idx.Position(uint(n.StartByte()))
	endLine, endCol := idx.Position(uint(n.EndByte()))
	return types.MatchResult{
		Start:     types.Position{Line: startLine, Column: startCol},
		End:       types.Position{Line: endLine, Column: endCol},
		Text:      string(content[n.StartByte():n.EndByte()]),
		Captures:  captures,
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
	}
}

// ApplyFix renders a RuleConfig's fix template for every match found by FindAll,
// delegating to internal/replacer for the same right-to-left, non-overlapping
// application rule_replace shares with plain replace.
func (e *Evaluator) ApplyFix(cfg *types.RuleConfig, content []byte) (matches []types.MatchResult, newContent string, changes []types.Change, err error) {
	matches, err = e.FindAll(cfg.Rule, cfg.Language, content)
	if err != nil {
		return nil, "", nil, err
	}
	if cfg.Fix == "" {
		return matches, string(content), nil, nil
	}
	newContent, changes = replacer.Apply(string(content), matches, cfg.Fix)
	return matches, newContent, changes, nil
}
