package rulestore

import (
	"fmt"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/types"
)

// checkCycles walks id's rule tree, following every MatchesRuleRef edge into the
// referenced config's own rule tree, with a DFS visiting set seeded with id itself — the
// same cycle shape internal/rules.Evaluator detects lazily during a match, caught here
// before a cyclic rule is ever accepted into the store.
func checkCycles(configs map[string]*types.RuleConfig, id string, rule types.Rule) error {
	return walkRefs(configs, rule, map[string]bool{id: true})
}

func walkRefs(configs map[string]*types.RuleConfig, rule types.Rule, visiting map[string]bool) error {
	switch rule.Kind {
	case types.KindRuleRef:
		if visiting[rule.RefID] {
			return cerrors.New(cerrors.InvalidRule, "cyclic rule reference: %q", rule.RefID)
		}
		ref, ok := configs[rule.RefID]
		if !ok {
			return nil // dangling reference, not a cycle; handled as NotFound at match time
		}
		visiting[rule.RefID] = true
		defer delete(visiting, rule.RefID)
		if err := walkRefs(configs, ref.Rule, visiting); err != nil {
			return err
		}
	case types.KindAll:
		for _, sub := range rule.All {
			if err := walkRefs(configs, sub, visiting); err != nil {
				return err
			}
		}
	case types.KindAny:
		for _, sub := range rule.Any {
			if err := walkRefs(configs, sub, visiting); err != nil {
				return err
			}
		}
	case types.KindNot:
		if rule.Not != nil {
			if err := walkRefs(configs, *rule.Not, visiting); err != nil {
				return err
			}
		}
	case types.KindInside, types.KindHas, types.KindFollows, types.KindPrecedes:
		if rel := rule.Relation; rel != nil {
			if err := walkRefs(configs, rel.Sub, visiting); err != nil {
				return err
			}
			if rel.StopBy.Kind == types.StopRule && rel.StopBy.Rule != nil {
				if err := walkRefs(configs, *rel.StopBy.Rule, visiting); err != nil {
					return err
				}
			}
		}
	}
	for _, constraint := range rule.Constraints {
		if err := walkRefs(configs, constraint, visiting); err != nil {
			return err
		}
	}
	return nil
}

// rejectCyclicRules runs checkCycles over every loaded config, in id order, dropping any
// rule that participates in a cycle and reporting it as a warning rather than failing the
// whole Load — consistent with how a duplicate id is handled. Dropping the offending
// rule as soon as it's found means the other half of a two-rule cycle (e.g. a -> matches:
// b, b -> matches: a) is re-checked against a graph that's already missing its partner
// and is no longer flagged.
func rejectCyclicRules(configs map[string]*types.RuleConfig, sortedIDs []string) []string {
	var warnings []string
	for _, id := range sortedIDs {
		cfg, ok := configs[id]
		if !ok {
			continue
		}
		if err := checkCycles(configs, id, cfg.Rule); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v, rule rejected", cfg.SourcePath, err))
			delete(configs, id)
		}
	}
	return warnings
}
