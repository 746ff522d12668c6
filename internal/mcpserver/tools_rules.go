package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/didyoumean"
	"github.com/standardbeagle/sgmcp/internal/rules"
	"github.com/standardbeagle/sgmcp/internal/rulestore"
	"github.com/standardbeagle/sgmcp/internal/types"
)

// suggestRuleID looks for a known rule id close to a mistyped one, for get_rule's
// NotFound responses.
func suggestRuleID(store *rulestore.Store, id string) (string, bool) {
	configs := store.List()
	ids := make([]string, len(configs))
	for i, cfg := range configs {
		ids[i] = cfg.ID
	}
	return didyoumean.Suggest(id, ids, didyoumean.DefaultThreshold)
}

func (s *Server) registerRuleTools() {
	s.addTool(&mcp.Tool{
		Name:        "rule_search",
		Description: "Evaluate a rule config's condition tree against an in-memory code string and return every match.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"rule": stringProp("Rule config, YAML or JSON"),
			"code": stringProp("Source code to evaluate the rule against"),
		}, "rule", "code"),
	}, s.handleRuleSearch)

	s.addTool(&mcp.Tool{
		Name:        "rule_replace",
		Description: "Apply a rule config's fix template to every match in an in-memory code string.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"rule": stringProp("Rule config, YAML or JSON; must carry a fix template"),
			"code": stringProp("Source code to rewrite"),
		}, "rule", "code"),
	}, s.handleRuleReplace)

	s.addTool(&mcp.Tool{
		Name:        "list_rules",
		Description: "List every rule loaded from the configured rule directories.",
		InputSchema: objectSchema(nil),
	}, s.handleListRules)

	s.addTool(&mcp.Tool{
		Name:        "get_rule",
		Description: "Fetch one loaded rule config by id.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"id": stringProp("Rule id"),
		}, "id"),
	}, s.handleGetRule)

	s.addTool(&mcp.Tool{
		Name:        "create_rule",
		Description: "Add a new rule, writing it to the rule store's write directory.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"rule":      stringProp("Rule config, YAML or JSON"),
			"overwrite": boolProp("Replace an existing rule with the same id instead of failing with DuplicateId"),
		}, "rule"),
	}, s.handleCreateRule)

	s.addTool(&mcp.Tool{
		Name:        "delete_rule",
		Description: "Remove a rule by id, including its backing file.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"id": stringProp("Rule id"),
		}, "id"),
	}, s.handleDeleteRule)

	s.addTool(&mcp.Tool{
		Name:        "validate_rule",
		Description: "Parse a rule config and optionally run it against test_code, reporting whether it is well-formed and what it matches.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"rule":      stringProp("Rule config, YAML or JSON"),
			"test_code": stringProp("Optional source code to test the rule's pattern against"),
		}, "rule"),
	}, s.handleValidateRule)
}

func parseRuleConfig(source string) (*types.RuleConfig, error) {
	trimmed := []byte(source)
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return rules.ParseJSON([]byte(source))
	}
	return rules.ParseYAML([]byte(source))
}

type ruleSearchParams struct {
	Rule string `json:"rule"`
	Code string `json:"code"`
}

func (s *Server) handleRuleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p ruleSearchParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing rule_search parameters"))
	}
	cfg, err := parseRuleConfig(p.Rule)
	if err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidRule, err, "parsing rule"))
	}
	lang, err := resolveLanguage(cfg.Language)
	if err != nil {
		return toolError(err)
	}
	matches, err := s.evaluator.FindAll(cfg.Rule, lang, []byte(p.Code))
	if err != nil {
		return toolError(err)
	}
	return jsonResponse(map[string]any{"matches": matches, "total": len(matches)})
}

func (s *Server) handleRuleReplace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p ruleSearchParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing rule_replace parameters"))
	}
	cfg, err := parseRuleConfig(p.Rule)
	if err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidRule, err, "parsing rule"))
	}
	if cfg.Fix == "" {
		return toolError(cerrors.New(cerrors.InvalidRule, "rule %q carries no fix template", cfg.ID))
	}
	if _, err := resolveLanguage(cfg.Language); err != nil {
		return toolError(err)
	}

	matches, newCode, changes, err := s.evaluator.ApplyFix(cfg, []byte(p.Code))
	if err != nil {
		return toolError(err)
	}
	return jsonResponse(map[string]any{
		"new_code":      newCode,
		"changes":       changes,
		"total_changes": len(changes),
		"matches":       matches,
	})
}

func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configs := s.store.List()
	rulesOut := make([]json.RawMessage, 0, len(configs))
	for _, cfg := range configs {
		data, err := rules.MarshalJSON(cfg)
		if err != nil {
			return toolError(cerrors.Wrap(cerrors.Internal, err, "marshaling rule %q", cfg.ID))
		}
		rulesOut = append(rulesOut, data)
	}
	return jsonResponse(map[string]any{"rules": rulesOut, "total": len(rulesOut)})
}

type ruleIDParams struct {
	ID string `json:"id"`
}

func (s *Server) handleGetRule(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p ruleIDParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing get_rule parameters"))
	}
	cfg, ok := s.store.Get(p.ID)
	if !ok {
		err := cerrors.New(cerrors.NotFound, "rule %q not found", p.ID)
		if suggestion, found := suggestRuleID(s.store, p.ID); found {
			err = err.WithSuggestion(suggestion)
		}
		return toolError(err)
	}
	data, err := rules.MarshalJSON(cfg)
	if err != nil {
		return toolError(cerrors.Wrap(cerrors.Internal, err, "marshaling rule %q", cfg.ID))
	}
	return jsonResponse(map[string]any{"rule": json.RawMessage(data)})
}

type createRuleParams struct {
	Rule      string `json:"rule"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

func (s *Server) handleCreateRule(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p createRuleParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing create_rule parameters"))
	}
	cfg, err := parseRuleConfig(p.Rule)
	if err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidRule, err, "parsing rule"))
	}
	if _, err := resolveLanguage(cfg.Language); err != nil {
		return toolError(err)
	}
	if err := s.store.CreateOrOverwrite(cfg, p.Overwrite); err != nil {
		return toolError(err)
	}
	return jsonResponse(map[string]any{"id": cfg.ID, "source_path": cfg.SourcePath})
}

func (s *Server) handleDeleteRule(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p ruleIDParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing delete_rule parameters"))
	}
	if err := s.store.Delete(p.ID); err != nil {
		return toolError(err)
	}
	return jsonResponse(map[string]any{"deleted": p.ID})
}

type validateRuleParams struct {
	Rule     string `json:"rule"`
	TestCode string `json:"test_code,omitempty"`
}

func (s *Server) handleValidateRule(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p validateRuleParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing validate_rule parameters"))
	}

	var issues []string
	cfg, err := parseRuleConfig(p.Rule)
	if err != nil {
		issues = append(issues, err.Error())
		return jsonResponse(map[string]any{"is_valid": false, "issues": issues})
	}

	lang, err := resolveLanguage(cfg.Language)
	if err != nil {
		issues = append(issues, err.Error())
	}

	var sampleMatches []types.MatchResult
	if lang != "" && p.TestCode != "" {
		matches, findErr := s.evaluator.FindAll(cfg.Rule, lang, []byte(p.TestCode))
		if findErr != nil {
			issues = append(issues, findErr.Error())
		} else if len(matches) == 0 {
			issues = append(issues, "rule matched nothing in test_code")
		} else {
			sampleMatches = matches
		}
	}

	resp := map[string]any{
		"is_valid": len(issues) == 0,
		"issues":   issues,
	}
	if sampleMatches != nil {
		resp["sample_matches"] = sampleMatches
	}
	return jsonResponse(resp)
}
