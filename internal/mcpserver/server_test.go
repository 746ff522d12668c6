package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sgmcp/internal/config"
	"github.com/standardbeagle/sgmcp/internal/logging"
	"github.com/standardbeagle/sgmcp/internal/rulestore"
)

func newTestServer(t *testing.T, ruleDir string) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default(root)

	var store *rulestore.Store
	if ruleDir != "" {
		var err error
		store, _, err = rulestore.Load([]string{ruleDir}, ruleDir)
		require.NoError(t, err)
	}

	s, err := New(cfg, []string{root}, store, logging.NewDiscard())
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func callJSON(t *testing.T, s *Server, tool string, params map[string]any) map[string]any {
	t.Helper()
	argsJSON, err := json.Marshal(params)
	require.NoError(t, err)

	result, err := s.CallTool(context.Background(), tool, argsJSON)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	if result.IsError {
		out["__is_error"] = true
	}
	return out
}

func TestNewRegistersAllThirteenTools(t *testing.T) {
	s := newTestServer(t, "")
	names := []string{
		"search", "file_search", "replace", "file_replace",
		"list_languages", "generate_ast",
		"rule_search", "rule_replace", "list_rules", "get_rule", "create_rule", "delete_rule",
		"validate_rule",
	}
	for _, n := range names {
		_, ok := s.handlers[n]
		assert.True(t, ok, "expected tool %q to be registered", n)
	}
}

func TestHandleSearchFindsPatternInCode(t *testing.T) {
	s := newTestServer(t, "")
	out := callJSON(t, s, "search", map[string]any{
		"pattern":  "func $NAME() { $$$BODY }",
		"language": "go",
		"code":     "package p\nfunc f() { x := 1; _ = x }\n",
	})
	matches, ok := out["matches"].([]any)
	require.True(t, ok)
	assert.Len(t, matches, 1)
}

func TestHandleSearchUnsupportedLanguage(t *testing.T) {
	s := newTestServer(t, "")
	out := callJSON(t, s, "search", map[string]any{
		"pattern":  "$X",
		"language": "not-a-real-language",
		"code":     "",
	})
	assert.Equal(t, true, out["__is_error"])
	assert.Equal(t, "unsupported_language", out["kind"])
}

func TestHandleReplaceSubstitutesMatches(t *testing.T) {
	s := newTestServer(t, "")
	out := callJSON(t, s, "replace", map[string]any{
		"pattern":     "foo($X)",
		"language":    "go",
		"code":        "package p\nfunc g() { foo(1) }\n",
		"replacement": "bar($X)",
	})
	newCode, ok := out["new_code"].(string)
	require.True(t, ok)
	assert.Contains(t, newCode, "bar(1)")
	assert.NotContains(t, newCode, "foo(1)")
}

func TestHandleFileSearchAcrossFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package p\nfunc a() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package p\nfunc b() {}\n"), 0o644))

	cfg := config.Default(root)
	s, err := New(cfg, []string{root}, nil, logging.NewDiscard())
	require.NoError(t, err)

	out := callJSON(t, s, "file_search", map[string]any{
		"pattern":      "func $NAME() { }",
		"language":     "go",
		"path_pattern": "*.go",
	})
	assert.EqualValues(t, 2, out["total_files"])
}

func TestListLanguagesIncludesGoWithGrammar(t *testing.T) {
	s := newTestServer(t, "")
	out := callJSON(t, s, "list_languages", map[string]any{})
	langs, ok := out["languages"].([]any)
	require.True(t, ok)
	var foundGo bool
	for _, l := range langs {
		entry := l.(map[string]any)
		if entry["tag"] == "go" {
			foundGo = true
			assert.Equal(t, true, entry["has_grammar"])
		}
	}
	assert.True(t, foundGo)
}

func TestGenerateASTReportsNodeKinds(t *testing.T) {
	s := newTestServer(t, "")
	out := callJSON(t, s, "generate_ast", map[string]any{
		"language": "go",
		"code":     "package p\nfunc f() {}\n",
	})
	require.NotNil(t, out["ast"])
	kinds, ok := out["node_kinds"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, kinds)
}

func TestCreateGetListDeleteRule(t *testing.T) {
	ruleDir := t.TempDir()
	s := newTestServer(t, ruleDir)

	created := callJSON(t, s, "create_rule", map[string]any{
		"rule": "id: no-fmt-println\nlanguage: go\nmessage: avoid fmt.Println\nrule:\n  pattern: fmt.Println($$$ARGS)\n",
	})
	assert.Equal(t, "no-fmt-println", created["id"])

	got := callJSON(t, s, "get_rule", map[string]any{"id": "no-fmt-println"})
	rule, ok := got["rule"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "no-fmt-println", rule["id"])

	listed := callJSON(t, s, "list_rules", map[string]any{})
	assert.EqualValues(t, 1, listed["total"])

	dup := callJSON(t, s, "create_rule", map[string]any{
		"rule": "id: no-fmt-println\nlanguage: go\nrule:\n  pattern: x\n",
	})
	assert.Equal(t, true, dup["__is_error"])
	assert.Equal(t, "duplicate_id", dup["kind"])

	deleted := callJSON(t, s, "delete_rule", map[string]any{"id": "no-fmt-println"})
	assert.Equal(t, "no-fmt-println", deleted["deleted"])

	missing := callJSON(t, s, "get_rule", map[string]any{"id": "no-fmt-println"})
	assert.Equal(t, true, missing["__is_error"])
	assert.Equal(t, "not_found", missing["kind"])
}

func TestValidateRuleReportsSampleMatches(t *testing.T) {
	s := newTestServer(t, "")
	out := callJSON(t, s, "validate_rule", map[string]any{
		"rule":      "id: call-foo\nlanguage: go\nrule:\n  pattern: foo($$$ARGS)\n",
		"test_code": "package p\nfunc g() { foo(1, 2) }\n",
	})
	assert.Equal(t, true, out["is_valid"])
	samples, ok := out["sample_matches"].([]any)
	require.True(t, ok)
	assert.Len(t, samples, 1)
}

func TestRuleSearchAndReplace(t *testing.T) {
	s := newTestServer(t, "")
	rule := "id: call-foo\nlanguage: go\nfix: bar($$$ARGS)\nrule:\n  pattern: foo($$$ARGS)\n"

	found := callJSON(t, s, "rule_search", map[string]any{
		"rule": rule,
		"code": "package p\nfunc g() { foo(1) }\n",
	})
	assert.EqualValues(t, 1, found["total"])

	replaced := callJSON(t, s, "rule_replace", map[string]any{
		"rule": rule,
		"code": "package p\nfunc g() { foo(1) }\n",
	})
	newCode, ok := replaced["new_code"].(string)
	require.True(t, ok)
	assert.Contains(t, newCode, "bar(1)")
}
