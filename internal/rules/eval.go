package rules

import (
	"regexp"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/patterns"
	"github.com/standardbeagle/sgmcp/internal/scanner"
	"github.com/standardbeagle/sgmcp/internal/types"
)

// RefResolver looks up a named rule for the MatchesRuleRef atomic variant. Declared here
// rather than depending on internal/rulestore directly, since the store depends on rules
// for parsing — a resolver interface breaks the cycle.
type RefResolver interface {
	Resolve(id string) (*types.RuleConfig, bool)
}

// Evaluator evaluates a Rule tree against tree-sitter nodes.
type Evaluator struct {
	compiler *patterns.Compiler
	refs     RefResolver
}

// New builds an Evaluator. refs may be nil if the caller never evaluates a
// MatchesRuleRef rule (e.g. validating a rule with no "matches" sub-rule).
func New(compiler *patterns.Compiler, refs RefResolver) *Evaluator {
	return &Evaluator{compiler: compiler, refs: refs}
}

// Eval evaluates rule against node n (from a tree parsed under language, with content
// being that tree's source). On match it returns the captured metavariables (possibly
// empty but non-nil) and ok=true; composite/relational rules bind no captures of their
// own beyond what their sub-rules bind. visiting tracks in-flight MatchesRuleRef ids for
// cycle detection and should be passed as nil by external callers (Eval allocates it).
func (e *Evaluator) Eval(rule types.Rule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	if visiting == nil {
		visiting = map[string]bool{}
	}

	captures, ok, err := e.evalKind(rule, n, language, content, visiting)
	if err != nil || !ok {
		return nil, false, err
	}

	for name, constraint := range rule.Constraints {
		captured, hasCapture := captures[name]
		if !hasCapture {
			continue
		}
		sub := findCapturedNode(n, captured, content)
		if sub == nil {
			return nil, false, nil
		}
		if _, cok, cerr := e.Eval(constraint, sub, language, content, visiting); cerr != nil {
			return nil, false, cerr
		} else if !cok {
			return nil, false, nil
		}
	}
	return captures, true, nil
}

func (e *Evaluator) evalKind(rule types.Rule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	switch rule.Kind {
	case types.KindPattern:
		return e.evalPattern(rule.Pattern, n, language, content)
	case types.KindNode:
		if n.Kind() == rule.NodeKind {
			return map[string]string{}, true, nil
		}
		return nil, false, nil
	case types.KindRegex:
		re, err := regexp.Compile("^(?:" + rule.Regex + ")$")
		if err != nil {
			return nil, false, cerrors.Wrap(cerrors.InvalidRule, err, "compiling regex %q", rule.Regex)
		}
		text := string(content[n.StartByte():n.EndByte()])
		if re.MatchString(text) {
			return map[string]string{}, true, nil
		}
		return nil, false, nil
	case types.KindRuleRef:
		return e.evalRuleRef(rule.RefID, n, language, content, visiting)
	case types.KindAll:
		return e.evalAll(rule.All, n, language, content, visiting)
	case types.KindAny:
		return e.evalAny(rule.Any, n, language, content, visiting)
	case types.KindNot:
		_, ok, err := e.Eval(*rule.Not, n, language, content, visiting)
		if err != nil {
			return nil, false, err
		}
		return map[string]string{}, !ok, nil
	case types.KindInside, types.KindHas, types.KindFollows, types.KindPrecedes:
		return e.evalRelational(rule.Relation, n, language, content, visiting)
	default:
		return nil, false, cerrors.New(cerrors.InvalidRule, "unknown rule kind %q", rule.Kind)
	}
}

func (e *Evaluator) evalPattern(p *types.PatternRule, n *tree_sitter.Node, language string, content []byte) (map[string]string, bool, error) {
	var pat *types.Pattern
	var err error
	if p.Context != "" {
		pat, err = e.compiler.CompileContext(language, p.Context, p.Selector)
	} else {
		pat, err = e.compiler.Compile(language, p.Source)
	}
	if err != nil {
		return nil, false, err
	}
	captures, ok := scanner.MatchAt(pat, n, content)
	if !ok {
		return nil, false, nil
	}
	return captures, true, nil
}

func (e *Evaluator) evalRuleRef(id string, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	if e.refs == nil {
		return nil, false, cerrors.New(cerrors.InvalidRule, "rule references %q but no rule store is configured", id)
	}
	if visiting[id] {
		return nil, false, cerrors.New(cerrors.InvalidRule, "cyclic rule reference: %q", id)
	}
	ref, found := e.refs.Resolve(id)
	if !found {
		return nil, false, cerrors.New(cerrors.NotFound, "referenced rule %q not found", id)
	}
	visiting[id] = true
	defer delete(visiting, id)
	return e.Eval(ref.Rule, n, language, content, visiting)
}

// evalAll requires every sub-rule to match n, unifying captures: if two sub-rules bind
// the same metavariable name to different text, All does not match.
func (e *Evaluator) evalAll(subs []types.Rule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	merged := map[string]string{}
	for _, sub := range subs {
		captures, ok, err := e.Eval(sub, n, language, content, visiting)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		for name, val := range captures {
			if prior, seen := merged[name]; seen && prior != val {
				return nil, false, nil
			}
			merged[name] = val
		}
	}
	return merged, true, nil
}

// evalAny matches the first sub-rule (in declaration order) that matches n, propagating
// only that sub-rule's captures.
func (e *Evaluator) evalAny(subs []types.Rule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	for _, sub := range subs {
		captures, ok, err := e.Eval(sub, n, language, content, visiting)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return captures, true, nil
		}
	}
	return nil, false, nil
}

func (e *Evaluator) evalRelational(rel *types.RelationalRule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	switch rel.Direction {
	case types.KindInside:
		return e.searchAncestors(rel, n, language, content, visiting)
	case types.KindHas:
		return e.searchDescendants(rel, n, language, content, visiting)
	case types.KindFollows:
		return e.searchSiblings(rel, n, language, content, visiting, (*tree_sitter.Node).PrevNamedSibling)
	case types.KindPrecedes:
		return e.searchSiblings(rel, n, language, content, visiting, (*tree_sitter.Node).NextNamedSibling)
	default:
		return nil, false, cerrors.New(cerrors.InvalidRule, "unknown relational direction %q", rel.Direction)
	}
}

// searchAncestors implements Inside: sub must match some ancestor of n, bounded by
// StopBy. Neighbor = only the immediate parent. End = unbounded upward. Rule(r) = search
// upward until a node matching r is reached (exclusive of that node).
func (e *Evaluator) searchAncestors(rel *types.RelationalRule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	cur := n.Parent()
	for cur != nil {
		if rel.StopBy.Kind == types.StopRule {
			_, stopped, err := e.Eval(*rel.StopBy.Rule, cur, language, content, visiting)
			if err != nil {
				return nil, false, err
			}
			if stopped {
				return nil, false, nil
			}
		}
		captures, ok, err := e.Eval(rel.Sub, cur, language, content, visiting)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return captures, true, nil
		}
		if rel.StopBy.Kind == types.StopNeighbor {
			return nil, false, nil
		}
		cur = cur.Parent()
	}
	return nil, false, nil
}

// searchDescendants implements Has: sub must match some descendant of n, bounded by
// StopBy. Neighbor = only n's immediate named children.
func (e *Evaluator) searchDescendants(rel *types.RelationalRule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool) (map[string]string, bool, error) {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(uint(i))
		if rel.StopBy.Kind == types.StopRule {
			_, stopped, err := e.Eval(*rel.StopBy.Rule, child, language, content, visiting)
			if err != nil {
				return nil, false, err
			}
			if stopped {
				continue
			}
		}
		if captures, ok, err := e.Eval(rel.Sub, child, language, content, visiting); err != nil {
			return nil, false, err
		} else if ok {
			return captures, true, nil
		}
		if rel.StopBy.Kind != types.StopNeighbor {
			if captures, ok, err := e.searchDescendants(rel, child, language, content, visiting); err != nil {
				return nil, false, err
			} else if ok {
				return captures, true, nil
			}
		}
	}
	return nil, false, nil
}

// searchSiblings implements Follows/Precedes: sub must match a node reached by
// repeatedly applying step (PrevNamedSibling for Follows, NextNamedSibling for
// Precedes), bounded by StopBy.
func (e *Evaluator) searchSiblings(rel *types.RelationalRule, n *tree_sitter.Node, language string, content []byte, visiting map[string]bool, step func(*tree_sitter.Node) *tree_sitter.Node) (map[string]string, bool, error) {
	cur := step(n)
	for cur != nil {
		if rel.StopBy.Kind == types.StopRule {
			_, stopped, err := e.Eval(*rel.StopBy.Rule, cur, language, content, visiting)
			if err != nil {
				return nil, false, err
			}
			if stopped {
				return nil, false, nil
			}
		}
		captures, ok, err := e.Eval(rel.Sub, cur, language, content, visiting)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return captures, true, nil
		}
		if rel.StopBy.Kind == types.StopNeighbor {
			return nil, false, nil
		}
		cur = step(cur)
	}
	return nil, false, nil
}

// findCapturedNode re-locates the tree node whose source text equals captured, searching
// within n's subtree. Constraints are evaluated against the captured metavariable's
// node, but captures only retain text, so the node is
// recovered by byte range rather than carried through as a *tree_sitter.Node (which
// would tie captures to tree-sitter's cgo lifetime beyond its intended scope).
func findCapturedNode(n *tree_sitter.Node, captured string, content []byte) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	if string(content[n.StartByte():n.EndByte()]) == captured {
		return n
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if found := findCapturedNode(n.NamedChild(uint(i)), captured, content); found != nil {
			return found
		}
	}
	return nil
}
