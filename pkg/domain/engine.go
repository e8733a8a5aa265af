package domain

import "sort"

// ClassificationResult is the engine output for one goal type. A
// non-matching evaluation is a valid terminal outcome, not an error.
type ClassificationResult struct {
	Matched     bool     `json:"matched"`
	RuleID      string   `json:"rule_id,omitempty"`
	Conclusion  string   `json:"conclusion,omitempty"`
	Explanation []string `json:"explanation,omitempty"`
}

// Clone returns an independent copy of the result.
func (r ClassificationResult) Clone() ClassificationResult {
	cp := r
	cp.Explanation = append([]string(nil), r.Explanation...)
	return cp
}

// RuleSource supplies the candidate rules for a goal type, sorted by
// priority ascending with insertion order as the tie-break.
type RuleSource interface {
	RulesByGoal(goal GoalType) []Rule
}

// Engine evaluates stored rules against a fact set. It holds no state of
// its own: each call is a fresh, read-only pass over the source snapshot,
// so repeated calls with an unchanged source and facts return identical
// results.
type Engine struct {
	source RuleSource
}

// NewEngine constructs an engine reading from the given rule source.
func NewEngine(source RuleSource) *Engine {
	return &Engine{source: source}
}

// Classify returns the conclusion and explanation of the first satisfied
// rule of the goal type, in priority order. First match wins; no attempt
// is made to find a more specific match among later satisfied rules.
func (e *Engine) Classify(goal GoalType, facts FactSet) (ClassificationResult, error) {
	if !goal.Valid() {
		return ClassificationResult{}, InvalidGoalError{Goal: string(goal)}
	}
	for _, rule := range e.source.RulesByGoal(goal) {
		if rule.SatisfiedBy(facts) {
			return ClassificationResult{
				Matched:     true,
				RuleID:      rule.ID,
				Conclusion:  rule.Conclusion,
				Explanation: append([]string(nil), rule.Explanation...),
			}, nil
		}
	}
	return ClassificationResult{}, nil
}

// SortRules orders rules by priority ascending, then by insertion
// sequence. Stores use it to provide the canonical evaluation order.
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].Seq < rules[j].Seq
	})
}
