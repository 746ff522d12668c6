// Package rules implements the Rule ADT's wire parsing (YAML/JSON/KDL) and
// the RuleEvaluator: executing composite/relational/atomic rules over a syntax
// tree and applying fix templates with metavariable substitution.
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/sblinch/kdl-go"
	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/types"
)

// wireRule mirrors types.Rule's shape for (de)serialization, since the ADT's closed sum
// type doesn't map directly onto YAML/JSON's native shapes — each variant is a tagged
// key at this level.
type wireRule struct {
	Pattern  *wirePattern        `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Kind     string              `yaml:"kind,omitempty" json:"kind,omitempty"`
	Regex    string              `yaml:"regex,omitempty" json:"regex,omitempty"`
	Matches  string              `yaml:"matches,omitempty" json:"matches,omitempty"`
	All      []wireRule          `yaml:"all,omitempty" json:"all,omitempty"`
	Any      []wireRule          `yaml:"any,omitempty" json:"any,omitempty"`
	Not      *wireRule           `yaml:"not,omitempty" json:"not,omitempty"`
	Inside   *wireRelational     `yaml:"inside,omitempty" json:"inside,omitempty"`
	Has      *wireRelational     `yaml:"has,omitempty" json:"has,omitempty"`
	Follows  *wireRelational     `yaml:"follows,omitempty" json:"follows,omitempty"`
	Precedes *wireRelational     `yaml:"precedes,omitempty" json:"precedes,omitempty"`

	// Constraints is attached alongside a pattern/kind/regex variant at the same level,
	// matching how ast-grep-style rule files write `constraints:` as a sibling key.
	Constraints map[string]wireRule `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// wirePattern accepts either a bare string (`pattern: "foo($X)"`) or the
// {context, selector, transform} object form. UnmarshalYAML/JSON dispatch on
// the underlying node kind.
type wirePattern struct {
	Source    string
	Context   string
	Selector  string
	Transform string
}

type wirePatternObject struct {
	Context   string `yaml:"context" json:"context"`
	Selector  string `yaml:"selector,omitempty" json:"selector,omitempty"`
	Transform string `yaml:"transform,omitempty" json:"transform,omitempty"`
}

func (p *wirePattern) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Source = value.Value
		return nil
	}
	var obj wirePatternObject
	if err := value.Decode(&obj); err != nil {
		return err
	}
	p.Context, p.Selector, p.Transform = obj.Context, obj.Selector, obj.Transform
	return nil
}

func (p *wirePattern) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Source = s
		return nil
	}
	var obj wirePatternObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Context, p.Selector, p.Transform = obj.Context, obj.Selector, obj.Transform
	return nil
}

type wireRelational struct {
	Rule   wireRule `yaml:"rule" json:"rule"`
	StopBy string   `yaml:"stopBy,omitempty" json:"stopBy,omitempty"`
	Until  *wireRule `yaml:"until,omitempty" json:"until,omitempty"` // populated iff stopBy == "rule"
}

// wireRuleConfig mirrors types.RuleConfig for parsing a full rule file.
type wireRuleConfig struct {
	ID       string   `yaml:"id" json:"id"`
	Language string   `yaml:"language" json:"language"`
	Message  string   `yaml:"message,omitempty" json:"message,omitempty"`
	Severity string   `yaml:"severity,omitempty" json:"severity,omitempty"`
	Rule     wireRule `yaml:"rule" json:"rule"`
	Fix      string   `yaml:"fix,omitempty" json:"fix,omitempty"`
}

// ParseYAML parses a single RuleConfig from YAML bytes.
func ParseYAML(data []byte) (*types.RuleConfig, error) {
	var w wireRuleConfig
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidRule, err, "parsing rule YAML")
	}
	return fromWire(w)
}

// ParseJSON parses a single RuleConfig from JSON bytes.
func ParseJSON(data []byte) (*types.RuleConfig, error) {
	var w wireRuleConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidRule, err, "parsing rule JSON")
	}
	return fromWire(w)
}

// ParseKDL parses a single RuleConfig from KDL, a bonus rule-file format alongside the
// required YAML/JSON.
// KDL has no native nested-object literal, so a rule file looks like:
//
//	rule id="no-console-log" language="javascript" {
//	    pattern "console.log($$$ARGS)"
//	    message "use the structured logger instead"
//	    severity "warning"
//	}
func ParseKDL(data []byte) (*types.RuleConfig, error) {
	var doc kdlRuleDocument
	if err := kdl.Unmarshal(data, &doc); err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidRule, err, "parsing rule KDL")
	}
	return doc.toRuleConfig()
}

func fromWire(w wireRuleConfig) (*types.RuleConfig, error) {
	if w.ID == "" {
		return nil, cerrors.New(cerrors.InvalidRule, "rule is missing required field \"id\"")
	}
	if w.Language == "" {
		return nil, cerrors.New(cerrors.InvalidRule, "rule %q is missing required field \"language\"", w.ID)
	}
	rule, err := w.Rule.toRule()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidRule, err, "rule %q", w.ID)
	}
	sev := types.Severity(w.Severity)
	if sev == "" {
		sev = types.SeverityWarning
	}
	return &types.RuleConfig{
		ID:       w.ID,
		Language: w.Language,
		Message:  w.Message,
		Severity: sev,
		Rule:     rule,
		Fix:      w.Fix,
	}, nil
}

func (w wireRule) toRule() (types.Rule, error) {
	set := 0
	var r types.Rule

	if w.Pattern != nil {
		set++
		r.Kind = types.KindPattern
		r.Pattern = &types.PatternRule{
			Source:    w.Pattern.Source,
			Context:   w.Pattern.Context,
			Selector:  w.Pattern.Selector,
			Transform: w.Pattern.Transform,
		}
	}
	if w.Kind != "" {
		set++
		r.Kind = types.KindNode
		r.NodeKind = w.Kind
	}
	if w.Regex != "" {
		set++
		r.Kind = types.KindRegex
		r.Regex = w.Regex
	}
	if w.Matches != "" {
		set++
		r.Kind = types.KindRuleRef
		r.RefID = w.Matches
	}
	if len(w.All) > 0 {
		set++
		r.Kind = types.KindAll
		sub, err := toRuleSlice(w.All)
		if err != nil {
			return r, err
		}
		r.All = sub
	}
	if len(w.Any) > 0 {
		set++
		r.Kind = types.KindAny
		sub, err := toRuleSlice(w.Any)
		if err != nil {
			return r, err
		}
		r.Any = sub
	}
	if w.Not != nil {
		set++
		r.Kind = types.KindNot
		sub, err := w.Not.toRule()
		if err != nil {
			return r, err
		}
		r.Not = &sub
	}
	if w.Inside != nil {
		set++
		rel, err := w.Inside.toRelational(types.KindInside)
		if err != nil {
			return r, err
		}
		r.Kind = types.KindInside
		r.Relation = rel
	}
	if w.Has != nil {
		set++
		rel, err := w.Has.toRelational(types.KindHas)
		if err != nil {
			return r, err
		}
		r.Kind = types.KindHas
		r.Relation = rel
	}
	if w.Follows != nil {
		set++
		rel, err := w.Follows.toRelational(types.KindFollows)
		if err != nil {
			return r, err
		}
		r.Kind = types.KindFollows
		r.Relation = rel
	}
	if w.Precedes != nil {
		set++
		rel, err := w.Precedes.toRelational(types.KindPrecedes)
		if err != nil {
			return r, err
		}
		r.Kind = types.KindPrecedes
		r.Relation = rel
	}

	if set != 1 {
		return r, fmt.Errorf("rule must set exactly one of pattern/kind/regex/matches/all/any/not/inside/has/follows/precedes, found %d", set)
	}

	if len(w.Constraints) > 0 {
		r.Constraints = make(map[string]types.Rule, len(w.Constraints))
		for name, wr := range w.Constraints {
			sub, err := wr.toRule()
			if err != nil {
				return r, fmt.Errorf("constraint %q: %w", name, err)
			}
			r.Constraints[name] = sub
		}
	}
	return r, nil
}

func toRuleSlice(ws []wireRule) ([]types.Rule, error) {
	out := make([]types.Rule, 0, len(ws))
	for i, w := range ws {
		r, err := w.toRule()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// MarshalYAML renders cfg back into the wire shape and YAML-encodes it — the inverse of
// ParseYAML. types.Rule itself carries no yaml tags (its field names don't match the
// wire format's tagged keys), so persistence always goes through wireRuleConfig rather
// than marshaling the ADT directly.
func MarshalYAML(cfg *types.RuleConfig) ([]byte, error) {
	return yaml.Marshal(toWireConfig(cfg))
}

// MarshalJSON renders cfg into the wire shape and JSON-encodes it, for get_rule/
// list_rules tool responses — the same round-trip rationale as MarshalYAML.
func MarshalJSON(cfg *types.RuleConfig) ([]byte, error) {
	return json.Marshal(toWireConfig(cfg))
}

func toWireConfig(cfg *types.RuleConfig) wireRuleConfig {
	return wireRuleConfig{
		ID:       cfg.ID,
		Language: cfg.Language,
		Message:  cfg.Message,
		Severity: string(cfg.Severity),
		Rule:     toWireRule(cfg.Rule),
		Fix:      cfg.Fix,
	}
}

func toWireRule(r types.Rule) wireRule {
	w := wireRule{}
	switch r.Kind {
	case types.KindPattern:
		w.Pattern = &wirePattern{
			Source:    r.Pattern.Source,
			Context:   r.Pattern.Context,
			Selector:  r.Pattern.Selector,
			Transform: r.Pattern.Transform,
		}
	case types.KindNode:
		w.Kind = r.NodeKind
	case types.KindRegex:
		w.Regex = r.Regex
	case types.KindRuleRef:
		w.Matches = r.RefID
	case types.KindAll:
		w.All = toWireRuleSlice(r.All)
	case types.KindAny:
		w.Any = toWireRuleSlice(r.Any)
	case types.KindNot:
		sub := toWireRule(*r.Not)
		w.Not = &sub
	case types.KindInside:
		w.Inside = toWireRelational(r.Relation)
	case types.KindHas:
		w.Has = toWireRelational(r.Relation)
	case types.KindFollows:
		w.Follows = toWireRelational(r.Relation)
	case types.KindPrecedes:
		w.Precedes = toWireRelational(r.Relation)
	}
	if len(r.Constraints) > 0 {
		w.Constraints = make(map[string]wireRule, len(r.Constraints))
		for name, sub := range r.Constraints {
			w.Constraints[name] = toWireRule(sub)
		}
	}
	return w
}

func toWireRuleSlice(rs []types.Rule) []wireRule {
	out := make([]wireRule, len(rs))
	for i, r := range rs {
		out[i] = toWireRule(r)
	}
	return out
}

func toWireRelational(rel *types.RelationalRule) *wireRelational {
	w := &wireRelational{Rule: toWireRule(rel.Sub)}
	switch rel.StopBy.Kind {
	case types.StopNeighbor:
		w.StopBy = "neighbor"
	case types.StopEnd:
		w.StopBy = "end"
	case types.StopRule:
		w.StopBy = "rule"
		until := toWireRule(*rel.StopBy.Rule)
		w.Until = &until
	}
	return w
}

func (w wireRelational) toRelational(direction types.RuleKind) (*types.RelationalRule, error) {
	sub, err := w.Rule.toRule()
	if err != nil {
		return nil, err
	}
	stopBy := types.StopBy{Kind: types.StopNeighbor}
	switch w.StopBy {
	case "", "neighbor":
		stopBy.Kind = types.StopNeighbor
	case "end":
		stopBy.Kind = types.StopEnd
	case "rule":
		if w.Until == nil {
			return nil, fmt.Errorf("stopBy \"rule\" requires an \"until\" sub-rule")
		}
		untilRule, err := w.Until.toRule()
		if err != nil {
			return nil, err
		}
		stopBy.Kind = types.StopRule
		stopBy.Rule = &untilRule
	default:
		return nil, fmt.Errorf("unknown stopBy %q", w.StopBy)
	}
	return &types.RelationalRule{Direction: direction, Sub: sub, StopBy: stopBy}, nil
}
