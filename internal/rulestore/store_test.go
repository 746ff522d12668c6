package rulestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/logging"
	"github.com/standardbeagle/sgmcp/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFindManifestWalksUpward(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeFile(t, root, ManifestName, "ruleDirs: [rules]\n")

	found, err := FindManifest(sub)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ManifestName), found)
}

func TestFindManifestReturnsEmptyWhenAbsent(t *testing.T) {
	found, err := FindManifest(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLoadDedupsFirstOccurrenceWins(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "no-println.yaml", "id: no-println\nlanguage: go\nrule:\n  pattern: fmt.Println($$$A)\n")
	writeFile(t, dirB, "no-println.yaml", "id: no-println\nlanguage: go\nrule:\n  kind: call_expression\n")

	store, warnings, err := Load([]string{dirA, dirB}, dirA)
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	cfg, ok := store.Get("no-println")
	require.True(t, ok)
	assert.Equal(t, "fmt.Println($$$A)", cfg.Rule.Pattern.Source)
}

func TestLoadWarnsOnMalformedRuleButContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "id: [this is not a string\n")
	writeFile(t, dir, "ok.yaml", "id: ok\nlanguage: go\nrule:\n  kind: call_expression\n")

	store, warnings, err := Load([]string{dir}, dir)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)

	_, ok := store.Get("ok")
	assert.True(t, ok)
}

func TestLoadRejectsCyclicRuleReferences(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: a\nlanguage: go\nrule:\n  matches: b\n")
	writeFile(t, dir, "b.yaml", "id: b\nlanguage: go\nrule:\n  matches: a\n")
	writeFile(t, dir, "ok.yaml", "id: ok\nlanguage: go\nrule:\n  kind: call_expression\n")

	store, warnings, err := Load([]string{dir}, dir)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)

	_, aLoaded := store.Get("a")
	_, bLoaded := store.Get("b")
	assert.False(t, aLoaded && bLoaded, "at least one half of the cycle must be rejected")

	_, okLoaded := store.Get("ok")
	assert.True(t, okLoaded, "a rule unrelated to the cycle must still load")
}

func TestCreateRejectsCyclicRuleReference(t *testing.T) {
	dir := t.TempDir()
	store, _, err := Load(nil, dir)
	require.NoError(t, err)

	selfRef := &types.RuleConfig{
		ID:       "self",
		Language: "go",
		Rule:     types.Rule{Kind: types.KindRuleRef, RefID: "self"},
	}
	err = store.Create(selfRef)
	require.Error(t, err)
	assert.Equal(t, cerrors.InvalidRule, cerrors.KindOf(err))

	_, ok := store.Get("self")
	assert.False(t, ok)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	store, _, err := Load(nil, dir)
	require.NoError(t, err)

	cfg := testConfig("dup")
	require.NoError(t, store.Create(cfg))

	err = store.Create(testConfig("dup"))
	require.Error(t, err)
	assert.Equal(t, cerrors.DuplicateID, cerrors.KindOf(err))
}

func TestCreateWritesFileAndDeleteRemovesIt(t *testing.T) {
	dir := t.TempDir()
	store, _, err := Load(nil, dir)
	require.NoError(t, err)

	cfg := testConfig("new-rule")
	require.NoError(t, store.Create(cfg))

	path := filepath.Join(dir, "new-rule.yaml")
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	require.NoError(t, store.Delete("new-rule"))
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	_, ok := store.Get("new-rule")
	assert.False(t, ok)
}

func TestWatchReloadsOnExternalFileWrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: a\nlanguage: go\nrule:\n  pattern: fmt.Println($$$A)\n")

	store, _, err := Load([]string{dir}, dir)
	require.NoError(t, err)
	_, ok := store.Get("b")
	require.False(t, ok)

	stop, err := store.Watch([]string{dir}, logging.NewDiscard())
	require.NoError(t, err)
	defer stop()

	writeFile(t, dir, "b.yaml", "id: b\nlanguage: go\nrule:\n  pattern: fmt.Printf($$$A)\n")

	require.Eventually(t, func() bool {
		_, ok := store.Get("b")
		return ok
	}, 2*time.Second, 20*time.Millisecond, "store should pick up the new rule file via fsnotify")
}

func testConfig(id string) *types.RuleConfig {
	return &types.RuleConfig{
		ID:       id,
		Language: "go",
		Rule:     types.Rule{Kind: types.KindNode, NodeKind: "call_expression"},
	}
}
