package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sgmcp/internal/patterns"
	"github.com/standardbeagle/sgmcp/internal/types"
)

const goSample = `package main

import "fmt"

func add(a int, b int) int {
	return a + b
}

func main() {
	fmt.Println(add(1, 2))
	fmt.Println("done")
}
`

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	c, err := patterns.New(32)
	require.NoError(t, err)
	return New(c, nil)
}

func TestParseYAMLPatternRule(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
id: no-fmt-println
language: go
message: avoid fmt.Println
rule:
  pattern: fmt.Println($$$ARGS)
`))
	require.NoError(t, err)
	assert.Equal(t, "no-fmt-println", cfg.ID)
	assert.Equal(t, types.KindPattern, cfg.Rule.Kind)
	assert.Equal(t, "fmt.Println($$$ARGS)", cfg.Rule.Pattern.Source)
}

func TestParseJSONCompositeRule(t *testing.T) {
	cfg, err := ParseJSON([]byte(`{
		"id": "call-inside-main",
		"language": "go",
		"rule": {
			"all": [
				{"kind": "call_expression"},
				{"inside": {"rule": {"pattern": "func main() { $$$BODY }"}}}
			]
		}
	}`))
	require.NoError(t, err)
	require.Equal(t, types.KindAll, cfg.Rule.Kind)
	require.Len(t, cfg.Rule.All, 2)
	assert.Equal(t, types.KindInside, cfg.Rule.All[1].Kind)
}

func TestParseRejectsAmbiguousRule(t *testing.T) {
	_, err := ParseYAML([]byte(`
id: bad
language: go
rule:
  kind: call_expression
  regex: foo
`))
	require.Error(t, err)
}

func TestEvalPatternRuleFindAll(t *testing.T) {
	e := newEvaluator(t)
	rule := types.Rule{Kind: types.KindPattern, Pattern: &types.PatternRule{Source: "fmt.Println($$$ARGS)"}}
	matches, err := e.FindAll(rule, "go", []byte(goSample))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestEvalNotRule(t *testing.T) {
	e := newEvaluator(t)
	rule := types.Rule{
		Kind: types.KindNot,
		Not: &types.Rule{
			Kind:    types.KindPattern,
			Pattern: &types.PatternRule{Source: `"done"`},
		},
	}
	matches, err := e.FindAll(rule, "go", []byte(`package p
var x = "done"
`))
	require.NoError(t, err)
	// Not matches every node whose text isn't the literal "done" string node; at least
	// the source_file root itself should match since it isn't that string leaf.
	assert.NotEmpty(t, matches)
}

func TestEvalInsideRuleScopesToFunction(t *testing.T) {
	e := newEvaluator(t)
	rule := types.Rule{
		Kind: types.KindAll,
		All: []types.Rule{
			{Kind: types.KindPattern, Pattern: &types.PatternRule{Source: "fmt.Println($$$ARGS)"}},
			{
				Kind: types.KindInside,
				Relation: &types.RelationalRule{
					Direction: types.KindInside,
					Sub:       types.Rule{Kind: types.KindPattern, Pattern: &types.PatternRule{Source: "func add($$$PARAMS) int { $$$BODY }"}},
					StopBy:    types.StopBy{Kind: types.StopEnd},
				},
			},
		},
	}
	matches, err := e.FindAll(rule, "go", []byte(goSample))
	require.NoError(t, err)
	assert.Empty(t, matches, "fmt.Println calls live in main, not add")
}

func TestApplyFixRendersTemplate(t *testing.T) {
	e := newEvaluator(t)
	cfg := &types.RuleConfig{
		ID:       "rewrite-println",
		Language: "go",
		Rule:     types.Rule{Kind: types.KindPattern, Pattern: &types.PatternRule{Source: "fmt.Println($$$ARGS)"}},
		Fix:      "log.Println($$$ARGS)",
	}
	matches, newContent, changes, err := e.ApplyFix(cfg, []byte(goSample))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.NotEmpty(t, changes)
	assert.Contains(t, newContent, "log.Println(add(1, 2))")
}

type stubResolver map[string]*types.RuleConfig

func (s stubResolver) Resolve(id string) (*types.RuleConfig, bool) {
	cfg, ok := s[id]
	return cfg, ok
}

func TestEvalRuleRefCycleDetected(t *testing.T) {
	c, err := patterns.New(8)
	require.NoError(t, err)

	resolver := stubResolver{}
	e := New(c, resolver)
	resolver["a"] = &types.RuleConfig{ID: "a", Rule: types.Rule{Kind: types.KindRuleRef, RefID: "b"}}
	resolver["b"] = &types.RuleConfig{ID: "b", Rule: types.Rule{Kind: types.KindRuleRef, RefID: "a"}}

	rule := types.Rule{Kind: types.KindRuleRef, RefID: "a"}
	_, _, _, err = e.ApplyFix(&types.RuleConfig{Language: "go", Rule: rule}, []byte(goSample))
	require.Error(t, err)
}
