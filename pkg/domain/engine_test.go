package domain

import (
	"errors"
	"testing"
)

// staticSource serves rules of the requested goal in canonical order.
type staticSource []Rule

func (s staticSource) RulesByGoal(goal GoalType) []Rule {
	var out []Rule
	for _, rule := range s {
		if rule.Type == goal {
			out = append(out, rule)
		}
	}
	SortRules(out)
	return out
}

func mustFacts(t *testing.T, values map[string]Value) FactSet {
	t.Helper()
	facts, err := NewFactSet(values)
	if err != nil {
		t.Fatalf("new fact set: %v", err)
	}
	return facts
}

func TestEngineFirstMatchWins(t *testing.T) {
	source := staticSource{
		{ID: "r-print", Type: GoalTechnique, Priority: 3, Seq: 3, Conditions: Conditions{
			"wax_visible": BoolValue(false),
		}, Conclusion: "Batik Print"},
		{ID: "r-tulis", Type: GoalTechnique, Priority: 1, Seq: 1, Conditions: Conditions{
			"strokes_irregular": BoolValue(true),
			"wax_visible":       BoolValue(true),
		}, Conclusion: "Batik Tulis", Explanation: []string{"hand drawn strokes"}},
		{ID: "r-cap", Type: GoalTechnique, Priority: 2, Seq: 2, Conditions: Conditions{
			"wax_visible": BoolValue(true),
		}, Conclusion: "Batik Cap"},
	}
	engine := NewEngine(source)

	facts := mustFacts(t, map[string]Value{
		"strokes_irregular": BoolValue(true),
		"wax_visible":       BoolValue(true),
	})
	result, err := engine.Classify(GoalTechnique, facts)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !result.Matched || result.RuleID != "r-tulis" || result.Conclusion != "Batik Tulis" {
		t.Fatalf("expected r-tulis to win, got %+v", result)
	}
	if len(result.Explanation) != 1 || result.Explanation[0] != "hand drawn strokes" {
		t.Fatalf("expected explanation trail, got %+v", result.Explanation)
	}
}

func TestEngineLowerPriorityNumberEvaluatesFirst(t *testing.T) {
	// Both rules are satisfied; the one with the smaller priority number
	// must conclude even though it was inserted later.
	source := staticSource{
		{ID: "later", Type: GoalQuality, Priority: 5, Seq: 1, Conditions: Conditions{
			"color_sharp": BoolValue(true),
		}, Conclusion: "Standard"},
		{ID: "earlier", Type: GoalQuality, Priority: 1, Seq: 2, Conditions: Conditions{
			"color_sharp": BoolValue(true),
		}, Conclusion: "Premium"},
	}
	engine := NewEngine(source)
	facts := mustFacts(t, map[string]Value{"color_sharp": BoolValue(true)})

	result, err := engine.Classify(GoalQuality, facts)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.RuleID != "earlier" {
		t.Fatalf("expected lower priority number to win, got %+v", result)
	}
}

func TestEngineEqualPriorityBreaksOnInsertionOrder(t *testing.T) {
	source := staticSource{
		{ID: "second", Type: GoalQuality, Priority: 2, Seq: 9, Conditions: Conditions{
			"fabric_smooth": BoolValue(true),
		}, Conclusion: "B"},
		{ID: "first", Type: GoalQuality, Priority: 2, Seq: 4, Conditions: Conditions{
			"fabric_smooth": BoolValue(true),
		}, Conclusion: "A"},
	}
	engine := NewEngine(source)
	facts := mustFacts(t, map[string]Value{"fabric_smooth": BoolValue(true)})

	result, err := engine.Classify(GoalQuality, facts)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.RuleID != "first" {
		t.Fatalf("expected earlier insertion to win the tie, got %+v", result)
	}
}

func TestEngineAbsentFactNeverSatisfies(t *testing.T) {
	source := staticSource{
		{ID: "needs-false", Type: GoalTechnique, Priority: 1, Seq: 1, Conditions: Conditions{
			"pattern_repeated": BoolValue(false),
		}, Conclusion: "Batik Tulis"},
	}
	engine := NewEngine(source)

	// The key is missing entirely, which is distinct from an explicit false.
	result, err := engine.Classify(GoalTechnique, mustFacts(t, map[string]Value{}))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Matched {
		t.Fatalf("absent key must not satisfy a condition, got %+v", result)
	}

	result, err = engine.Classify(GoalTechnique, mustFacts(t, map[string]Value{
		"pattern_repeated": BoolValue(false),
	}))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !result.Matched {
		t.Fatalf("explicit false must satisfy an ==false condition")
	}
}

func TestEngineNoMatchIsNotAnError(t *testing.T) {
	engine := NewEngine(staticSource{})
	result, err := engine.Classify(GoalQuality, mustFacts(t, map[string]Value{
		"defect_count": IntValue(2),
	}))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Matched || result.RuleID != "" || result.Conclusion != "" {
		t.Fatalf("expected zero result on no match, got %+v", result)
	}
}

func TestEngineRejectsUnknownGoal(t *testing.T) {
	engine := NewEngine(staticSource{})
	_, err := engine.Classify(GoalType("origin"), nil)
	var invalid InvalidGoalError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidGoalError, got %v", err)
	}
	if invalid.Goal != "origin" {
		t.Fatalf("expected offending goal in error, got %+v", invalid)
	}
}

func TestEngineIsDeterministic(t *testing.T) {
	source := staticSource{
		{ID: "a", Type: GoalTechnique, Priority: 1, Seq: 1, Conditions: Conditions{
			"machine_like": BoolValue(true),
		}, Conclusion: "Batik Print"},
		{ID: "b", Type: GoalTechnique, Priority: 1, Seq: 2, Conditions: Conditions{
			"machine_like": BoolValue(true),
		}, Conclusion: "Other"},
	}
	engine := NewEngine(source)
	facts := mustFacts(t, map[string]Value{"machine_like": BoolValue(true)})

	first, err := engine.Classify(GoalTechnique, facts)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := engine.Classify(GoalTechnique, facts)
		if err != nil {
			t.Fatalf("classify %d: %v", i, err)
		}
		if again.RuleID != first.RuleID || again.Conclusion != first.Conclusion {
			t.Fatalf("iteration %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestSortRulesIsStable(t *testing.T) {
	rules := []Rule{
		{ID: "c", Priority: 2, Seq: 3},
		{ID: "a", Priority: 1, Seq: 2},
		{ID: "b", Priority: 1, Seq: 1},
		{ID: "d", Priority: 3, Seq: 4},
	}
	SortRules(rules)
	got := make([]string, 0, len(rules))
	for _, r := range rules {
		got = append(got, r.ID)
	}
	want := []string{"b", "a", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}
