package types

// Rule is a closed sum type over atomic, composite, and relational rule variants.
// Exactly one of the Kind-selected fields is populated; Eval (in internal/rules)
// dispatches on Kind.
type Rule struct {
	Kind RuleKind

	// Atomic
	Pattern *PatternRule
	NodeKind string // for Kind()
	Regex    string // for Regex()
	RefID    string // for MatchesRuleRef()

	// Composite
	All []Rule
	Any []Rule
	Not *Rule

	// Relational
	Relation *RelationalRule

	// Constraints attached to a Pattern rule: metavariable name -> restricting rule.
	Constraints map[string]Rule
}

// RuleKind selects which variant of Rule is populated.
type RuleKind string

const (
	KindPattern RuleKind = "pattern"
	KindNode    RuleKind = "kind"
	KindRegex   RuleKind = "regex"
	KindRuleRef RuleKind = "matches"
	KindAll     RuleKind = "all"
	KindAny     RuleKind = "any"
	KindNot     RuleKind = "not"
	KindInside  RuleKind = "inside"
	KindHas     RuleKind = "has"
	KindFollows RuleKind = "follows"
	KindPrecedes RuleKind = "precedes"
)

// PatternRule is the Pattern(...) atomic variant: either a bare pattern string, or a
// pattern plus an optional selector/transform/context.
type PatternRule struct {
	Source    string
	Context   string // surrounding snippet the pattern is parsed within, optional
	Selector  string // node kind to select out of Context's parse, optional
	Transform string // named transform, optional; parsed and round-tripped, but no transform is applied to captures
}

// StopByKind selects how far a relational rule's traversal extends.
type StopByKind string

const (
	StopNeighbor StopByKind = "neighbor" // default: only the immediate parent/child/sibling
	StopEnd      StopByKind = "end"      // unbounded in that direction
	StopRule     StopByKind = "rule"     // stop at (exclusive of) the first node matching StopBy.Rule
)

// StopBy bounds how far Inside/Has/Follows/Precedes traverse.
type StopBy struct {
	Kind StopByKind
	Rule *Rule // populated iff Kind == StopRule
}

// RelationalRule is the shared shape of Inside/Has/Follows/Precedes.
type RelationalRule struct {
	Direction RuleKind // one of KindInside, KindHas, KindFollows, KindPrecedes
	Sub       Rule
	StopBy    StopBy
}

// Severity is a RuleConfig's reported severity level.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
)

// RuleConfig is a full named rule as loaded from a rule file.
type RuleConfig struct {
	ID       string   `yaml:"id" json:"id"`
	Language string   `yaml:"language" json:"language"`
	Message  string   `yaml:"message,omitempty" json:"message,omitempty"`
	Severity Severity `yaml:"severity,omitempty" json:"severity,omitempty"`
	Rule     Rule     `yaml:"rule" json:"rule"`
	Fix      string   `yaml:"fix,omitempty" json:"fix,omitempty"`

	// SourcePath is the file this config was loaded from (not part of the wire format;
	// populated by the loader for dedup-warning messages and CRUD responses).
	SourcePath string `yaml:"-" json:"-"`
}
