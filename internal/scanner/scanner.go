// Package scanner implements the CodeScanner: matching a compiled Pattern against a
// parsed source tree, capturing $NAME/$$$NAME metavariables. This is the structural heart
// of the system — there is no off-the-shelf library for it; the matcher is a hand-written
// tree walk over NamedChild/StartByte/EndByte slicing.
package scanner

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/langtable"
	"github.com/standardbeagle/sgmcp/internal/lineindex"
	"github.com/standardbeagle/sgmcp/internal/types"
)

// Scanner matches compiled patterns against source files.
type Scanner struct{}

// New constructs a Scanner. It holds no state; one value is reused across all requests.
func New() *Scanner { return &Scanner{} }

// FindAll parses content under pattern.Language and returns every non-overlapping
// top-level match of pattern in document order. A match's descendants are never also
// reported as separate matches of the same search.
func (s *Scanner) FindAll(pattern *types.Pattern, content []byte) ([]types.MatchResult, error) {
	if !langtable.HasGrammar(pattern.Language) {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "no grammar bound for language %q", pattern.Language)
	}
	parser, ok := langtable.NewParser(pattern.Language)
	if !ok {
		return nil, cerrors.New(cerrors.UnsupportedLanguage, "failed to construct parser for language %q", pattern.Language)
	}
	defer parser.Close()

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, cerrors.New(cerrors.FileIOError, "content failed to parse under %q grammar", pattern.Language)
	}
	defer tree.Close()

	idx := lineindex.Build(content)
	var results []types.MatchResult
	walk(tree.RootNode(), pattern.RootKind, func(n *tree_sitter.Node) bool {
		captures := map[string]string{}
		if matchNode(pattern.Root, n, content, captures) {
			results = append(results, toMatchResult(n, content, idx, captures))
			return false // don't descend into an already-matched subtree
		}
		return true
	})
	return results, nil
}

// MatchAt reports whether pattern matches exactly at target node n (no search, no
// descent), returning the captures on success. Used by internal/rules to evaluate an
// atomic Pattern(...) rule against one candidate node during rule traversal.
func MatchAt(pattern *types.Pattern, n *tree_sitter.Node, content []byte) (map[string]string, bool) {
	captures := map[string]string{}
	if matchNode(pattern.Root, n, content, captures) {
		return captures, true
	}
	return nil, false
}

// toMatchResult builds a MatchResult from a matched target node and its captures.
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

// walk visits every node in the tree in pre-order depth-first document order, calling
// visit for each node whose Kind matches rootKind (rootKind == "" visits every node).
// visit returns false to skip descending into that node's children — used once a
// match is found, so overlapping inner matches of the same pattern are not reported.
func walk(n *tree_sitter.Node, rootKind string, visit func(*tree_sitter.Node) bool) {
	if n == nil {
		return
	}
	descend := true
	if rootKind == "" || n.Kind() == rootKind {
		descend = visit(n)
	}
	if !descend {
		return
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(uint(i))
		walk(child, rootKind, visit)
	}
}

// matchNode reports whether pattern node pn matches target node tn, recording
// metavariable captures into captures as it goes. A non-linear pattern (the same
// metavariable name appearing twice) requires identical captured text both times.
func matchNode(pn *types.PatternNode, tn *tree_sitter.Node, content []byte, captures map[string]string) bool {
	if pn == nil || tn == nil {
		return false
	}

	if pn.Meta == types.MetaSingle {
		return captureSingle(pn.MetaName, tn, content, captures)
	}

	if pn.Kind != tn.Kind() {
		return false
	}

	if len(pn.Children) == 0 {
		// Leaf pattern node: grammar kind matched above; for genuine leaves (not
		// metavariables) the literal text must also match exactly.
		tnNamed := int(tn.NamedChildCount())
		if tnNamed != 0 {
			return false
		}
		return pn.Text == string(content[tn.StartByte():tn.EndByte()])
	}

	targetChildren := make([]*tree_sitter.Node, tn.NamedChildCount())
	for i := range targetChildren {
		targetChildren[i] = tn.NamedChild(uint(i))
	}
	return matchSequence(pn.Children, targetChildren, content, captures)
}

func captureSingle(name string, tn *tree_sitter.Node, content []byte, captures map[string]string) bool {
	text := string(content[tn.StartByte():tn.EndByte()])
	if prior, seen := captures[name]; seen {
		return prior == text
	}
	captures[name] = text
	return true
}

// matchSequence matches a pattern's child list against a target's named-child list,
// honoring $$$NAME variadic elements by trying every possible run length (shortest
// first) and backtracking if the remainder fails to match.
func matchSequence(pns []*types.PatternNode, tns []*tree_sitter.Node, content []byte, captures map[string]string) bool {
	if len(pns) == 0 {
		return len(tns) == 0
	}

	head := pns[0]
	if head.Meta == types.MetaVariadic {
		for consumed := 0; consumed <= len(tns); consumed++ {
			trial := cloneCaptures(captures)
			if captureVariadic(head.MetaName, tns[:consumed], content, trial) &&
				matchSequence(pns[1:], tns[consumed:], content, trial) {
				mergeInto(captures, trial)
				return true
			}
		}
		return false
	}

	if len(tns) == 0 {
		return false
	}
	if !matchNode(head, tns[0], content, captures) {
		return false
	}
	return matchSequence(pns[1:], tns[1:], content, captures)
}

func captureVariadic(name string, tns []*tree_sitter.Node, content []byte, captures map[string]string) bool {
	if len(tns) == 0 {
		if prior, seen := captures[name]; seen {
			return prior == ""
		}
		captures[name] = ""
		return true
	}
	first, last := tns[0], tns[len(tns)-1]
	text := string(content[first.StartByte():last.EndByte()])
	if prior, seen := captures[name]; seen {
		return prior == text
	}
	captures[name] = text
	return true
}

func cloneCaptures(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeInto(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
