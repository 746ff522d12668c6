package rules

import "github.com/standardbeagle/sgmcp/internal/types"

// kdlRuleDocument mirrors the single top-level `rule` node of a KDL rule file. The
// sblinch/kdl-go decoder maps KDL node arguments/properties onto struct tags; nested
// rule trees (all/any/not/inside/...) are not supported in the KDL form — it covers the
// common flat pattern+message+severity+fix case, with YAML/JSON as the full-fidelity
// formats for composite/relational rules.
type kdlRuleDocument struct {
	Rule kdlRuleNode `kdl:"rule"`
}

type kdlRuleNode struct {
	ID       string `kdl:"id,prop"`
	Language string `kdl:"language,prop"`
	Pattern  string `kdl:"pattern,child"`
	Message  string `kdl:"message,child"`
	Severity string `kdl:"severity,child"`
	Fix      string `kdl:"fix,child"`
}

func (d kdlRuleDocument) toRuleConfig() (*types.RuleConfig, error) {
	w := wireRuleConfig{
		ID:       d.Rule.ID,
		Language: d.Rule.Language,
		Message:  d.Rule.Message,
		Severity: d.Rule.Severity,
		Fix:      d.Rule.Fix,
		Rule: wireRule{
			Pattern: &wirePattern{Source: d.Rule.Pattern},
		},
	}
	return fromWire(w)
}
