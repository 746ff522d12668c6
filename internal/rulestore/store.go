// Package rulestore implements rule-directory discovery, loading, and CRUD:
// finding sgconfig.yml by walking upward from a start directory, loading every rule file
// in the configured directories with first-occurrence-wins dedup, and mutating individual
// rule files atomically.
package rulestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/rules"
	"github.com/standardbeagle/sgmcp/internal/types"
)

// ManifestName is the file FindManifest walks upward looking for.
const ManifestName = "sgconfig.yml"

// manifest is sgconfig.yml's shape: a list of directories (relative to the manifest's own
// location) to load rule files from.
type manifest struct {
	RuleDirs []string `yaml:"ruleDirs"`
}

// FindManifest walks upward from startDir looking for sgconfig.yml. Returns "" if none is
// found before reaching the filesystem root.
func FindManifest(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", startDir, err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadManifest parses sgconfig.yml at manifestPath and resolves its ruleDirs entries
// relative to the manifest's own directory, for callers (cmd/sgmcp) that found the
// manifest via FindManifest and need the directory list Load expects.
func LoadManifest(manifestPath string) ([]string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.FileIOError, err, "reading %s", manifestPath)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidRule, err, "parsing %s", manifestPath)
	}
	base := filepath.Dir(manifestPath)
	dirs := make([]string, len(m.RuleDirs))
	for i, d := range m.RuleDirs {
		if filepath.IsAbs(d) {
			dirs[i] = d
		} else {
			dirs[i] = filepath.Join(base, d)
		}
	}
	return dirs, nil
}

// Store holds the set of loaded RuleConfigs, keyed by ID, plus the directory new rules
// are written into via Create.
type Store struct {
	mu      sync.RWMutex
	configs map[string]*types.RuleConfig
	writeDir string
}

// Load reads every *.yaml/*.yml/*.json/*.kdl rule file from each of dirs (in order),
// skipping any id already claimed by an earlier directory — the first occurrence wins,
// and every subsequent duplicate is reported as a warning string rather than an error.
func Load(dirs []string, writeDir string) (*Store, []string, error) {
	s := &Store{configs: map[string]*types.RuleConfig{}, writeDir: writeDir}
	var warnings []string

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				warnings = append(warnings, fmt.Sprintf("rule directory %s does not exist, skipping", dir))
				continue
			}
			return nil, warnings, cerrors.Wrap(cerrors.FileIOError, err, "reading rule directory %s", dir)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			cfg, err := parseFile(path)
			if err != nil {
				if err == errUnrecognizedExt {
					continue
				}
				warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			cfg.SourcePath = path
			if _, exists := s.configs[cfg.ID]; exists {
				warnings = append(warnings, fmt.Sprintf("%s: duplicate rule id %q, keeping first occurrence", path, cfg.ID))
				continue
			}
			s.configs[cfg.ID] = cfg
		}
	}

	loadedIDs := make([]string, 0, len(s.configs))
	for id := range s.configs {
		loadedIDs = append(loadedIDs, id)
	}
	sort.Strings(loadedIDs)
	warnings = append(warnings, rejectCyclicRules(s.configs, loadedIDs)...)

	return s, warnings, nil
}

var errUnrecognizedExt = fmt.Errorf("unrecognized rule file extension")

func parseFile(path string) (*types.RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return rules.ParseYAML(data)
	case ".json":
		return rules.ParseJSON(data)
	case ".kdl":
		return rules.ParseKDL(data)
	default:
		return nil, errUnrecognizedExt
	}
}

// Resolve implements rules.RefResolver, looking up a rule by id for MatchesRuleRef.
func (s *Store) Resolve(id string) (*types.RuleConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	return cfg, ok
}

// Get returns the rule with the given id.
func (s *Store) Get(id string) (*types.RuleConfig, bool) {
	return s.Resolve(id)
}

// List returns every loaded rule, ordered by ID for stable pagination.
func (s *Store) List() []*types.RuleConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.RuleConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Create adds a new rule, writing it atomically to <writeDir>/<id>.yaml. Returns
// cerrors.DuplicateID if the id is already taken by a loaded rule.
func (s *Store) Create(cfg *types.RuleConfig) error {
	return s.put(cfg, false)
}

// CreateOrOverwrite behaves like Create, except when overwrite is true an existing rule
// with the same id is replaced (its old backing file path is reused) instead of rejected.
func (s *Store) CreateOrOverwrite(cfg *types.RuleConfig, overwrite bool) error {
	return s.put(cfg, overwrite)
}

func (s *Store) put(cfg *types.RuleConfig, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.configs[cfg.ID]
	if exists && !overwrite {
		return cerrors.New(cerrors.DuplicateID, "rule %q already exists", cfg.ID)
	}

	trial := make(map[string]*types.RuleConfig, len(s.configs)+1)
	for id, c := range s.configs {
		trial[id] = c
	}
	trial[cfg.ID] = cfg
	if err := checkCycles(trial, cfg.ID, cfg.Rule); err != nil {
		return err
	}

	path := filepath.Join(s.writeDir, cfg.ID+".yaml")
	if exists && existing.SourcePath != "" {
		path = existing.SourcePath
	}
	if err := writeRuleFile(path, cfg); err != nil {
		return err
	}
	cfg.SourcePath = path
	s.configs[cfg.ID] = cfg
	return nil
}

// Delete removes a rule's in-memory entry and its backing file, if it has one.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[id]
	if !ok {
		return cerrors.New(cerrors.NotFound, "rule %q not found", id)
	}
	if cfg.SourcePath != "" {
		if err := os.Remove(cfg.SourcePath); err != nil && !os.IsNotExist(err) {
			return cerrors.Wrap(cerrors.FileIOError, err, "deleting %s", cfg.SourcePath)
		}
	}
	delete(s.configs, id)
	return nil
}

// writeRuleFile marshals cfg as YAML and writes it atomically via write-to-temp-then-
// rename, the same pattern internal/replacer uses for source file mutation.
func writeRuleFile(path string, cfg *types.RuleConfig) error {
	data, err := rules.MarshalYAML(cfg)
	if err != nil {
		return cerrors.Wrap(cerrors.Internal, err, "marshaling rule %q", cfg.ID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerrors.Wrap(cerrors.FileIOError, err, "creating rule directory for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return cerrors.Wrap(cerrors.FileIOError, err, "creating temp file for %s", path)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return cerrors.Wrap(cerrors.FileIOError, err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return cerrors.Wrap(cerrors.FileIOError, err, "closing temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return cerrors.Wrap(cerrors.FileIOError, err, "renaming temp file onto %s", path)
	}
	return nil
}
