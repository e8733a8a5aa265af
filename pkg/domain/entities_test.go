package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestValueEqualityHasNoCoercion(t *testing.T) {
	if BoolValue(true).Equal(IntValue(1)) {
		t.Fatalf("true must not equal 1")
	}
	if BoolValue(false).Equal(IntValue(0)) {
		t.Fatalf("false must not equal 0")
	}
	if !IntValue(3).Equal(IntValue(3)) {
		t.Fatalf("equal integers must compare equal")
	}
	if IntValue(3).Equal(IntValue(4)) {
		t.Fatalf("distinct integers must not compare equal")
	}
	if !BoolValue(true).Equal(BoolValue(true)) {
		t.Fatalf("equal booleans must compare equal")
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	payload := map[string]Value{
		"wax_visible":  BoolValue(true),
		"defect_count": IntValue(2),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(payload, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValueJSONRejectsNonScalars(t *testing.T) {
	cases := []string{`"true"`, `"3"`, `null`, `1.5`, `[1]`, `{"a":1}`}
	for _, raw := range cases {
		var v Value
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			t.Fatalf("expected %s to be rejected", raw)
		}
	}
	// Integral floats are accepted as integers, matching JSON's single
	// number type.
	var v Value
	if err := json.Unmarshal([]byte(`4`), &v); err != nil {
		t.Fatalf("unmarshal 4: %v", err)
	}
	if v.Kind() != KindInt || v.Int() != 4 {
		t.Fatalf("expected int 4, got %v", v)
	}
}

func TestValueYAMLRejectsStrings(t *testing.T) {
	var m map[string]Value
	if err := yaml.Unmarshal([]byte("key: maybe\n"), &m); err == nil {
		t.Fatalf("expected string scalar to be rejected")
	}
	if err := yaml.Unmarshal([]byte("key: 7\nflag: false\n"), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m["key"].Equal(IntValue(7)) || !m["flag"].Equal(BoolValue(false)) {
		t.Fatalf("unexpected decoded values: %+v", m)
	}
}

func TestNewFactSetEnforcesCatalogKinds(t *testing.T) {
	_, err := NewFactSet(map[string]Value{"defect_count": BoolValue(true)})
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for wrong kind, got %v", err)
	}
	if verr.Field != "defect_count" {
		t.Fatalf("expected field defect_count, got %+v", verr)
	}

	// Keys outside the catalog are accepted with either kind.
	facts, err := NewFactSet(map[string]Value{"pattern_uniform_machine": BoolValue(true)})
	if err != nil {
		t.Fatalf("unexpected error for uncataloged key: %v", err)
	}
	if !facts["pattern_uniform_machine"].Equal(BoolValue(true)) {
		t.Fatalf("uncataloged key lost its value")
	}
}

func TestRuleDraftValidate(t *testing.T) {
	valid := RuleDraft{
		Type:       GoalTechnique,
		Priority:   1,
		Conditions: Conditions{"wax_visible": BoolValue(true)},
		Conclusion: "Batik Tulis",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid draft rejected: %v", err)
	}

	cases := []struct {
		name  string
		draft RuleDraft
		field string
	}{
		{
			name: "unknown goal type",
			draft: RuleDraft{Type: "origin", Priority: 1,
				Conditions: Conditions{"wax_visible": BoolValue(true)}, Conclusion: "X"},
			field: "type",
		},
		{
			name: "empty conclusion",
			draft: RuleDraft{Type: GoalQuality, Priority: 1,
				Conditions: Conditions{"color_faded": BoolValue(true)}},
			field: "conclusion",
		},
		{
			name:  "empty conditions",
			draft: RuleDraft{Type: GoalQuality, Priority: 1, Conclusion: "Reject"},
			field: "conditions",
		},
		{
			name: "untyped condition value",
			draft: RuleDraft{Type: GoalQuality, Priority: 1,
				Conditions: Conditions{"color_faded": {}}, Conclusion: "Reject"},
			field: "color_faded",
		},
		{
			name: "catalog kind mismatch",
			draft: RuleDraft{Type: GoalQuality, Priority: 1,
				Conditions: Conditions{"defect_count": BoolValue(false)}, Conclusion: "Reject"},
			field: "defect_count",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %s, got %+v", tc.field, verr)
			}
		})
	}
}

func TestRulePatchApplyMergesWithoutMutating(t *testing.T) {
	original := Rule{
		ID:         "r1",
		Type:       GoalTechnique,
		Priority:   2,
		Seq:        7,
		Conditions: Conditions{"wax_visible": BoolValue(true)},
		Conclusion: "Batik Cap",
	}
	newPriority := int64(9)
	patch := RulePatch{
		Priority:   &newPriority,
		Conditions: Conditions{"machine_like": BoolValue(true)},
	}
	merged, err := patch.Apply(original)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if merged.Priority != 9 || merged.Conclusion != "Batik Cap" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if merged.ID != "r1" || merged.Seq != 7 {
		t.Fatalf("identity fields must be preserved: %+v", merged)
	}
	if _, ok := merged.Conditions["wax_visible"]; ok {
		t.Fatalf("non-nil patch conditions must replace wholesale")
	}
	if original.Priority != 2 || len(original.Conditions) != 1 {
		t.Fatalf("original rule was mutated: %+v", original)
	}
}

func TestRulePatchApplyRejectsInvalidMerge(t *testing.T) {
	original := Rule{
		ID:         "r1",
		Type:       GoalTechnique,
		Priority:   1,
		Conditions: Conditions{"wax_visible": BoolValue(true)},
		Conclusion: "Batik Tulis",
	}
	empty := ""
	if _, err := (RulePatch{Conclusion: &empty}).Apply(original); err == nil {
		t.Fatalf("expected empty conclusion to be rejected")
	}
	if _, err := (RulePatch{Conditions: Conditions{}}).Apply(original); err == nil {
		t.Fatalf("expected empty condition replacement to be rejected")
	}
}

func TestRuleSatisfiedByRequiresEveryCondition(t *testing.T) {
	rule := Rule{
		Conditions: Conditions{
			"wax_visible":  BoolValue(true),
			"defect_count": IntValue(0),
		},
	}
	full := FactSet{
		"wax_visible":  BoolValue(true),
		"defect_count": IntValue(0),
		"color_sharp":  BoolValue(true),
	}
	if !rule.SatisfiedBy(full) {
		t.Fatalf("superset of conditions must satisfy the rule")
	}
	partial := FactSet{"wax_visible": BoolValue(true)}
	if rule.SatisfiedBy(partial) {
		t.Fatalf("missing condition key must not satisfy the rule")
	}
	mismatched := FactSet{
		"wax_visible":  BoolValue(true),
		"defect_count": IntValue(2),
	}
	if rule.SatisfiedBy(mismatched) {
		t.Fatalf("unequal value must not satisfy the rule")
	}
}

func TestParseGoalType(t *testing.T) {
	if _, err := ParseGoalType("technique"); err != nil {
		t.Fatalf("technique should parse: %v", err)
	}
	if _, err := ParseGoalType("quality"); err != nil {
		t.Fatalf("quality should parse: %v", err)
	}
	if _, err := ParseGoalType("Technique"); err == nil {
		t.Fatalf("goal types are case sensitive")
	}
}

func TestCloneProducesIndependentCopies(t *testing.T) {
	rule := Rule{
		Conditions:  Conditions{"wax_visible": BoolValue(true)},
		Explanation: []string{"first"},
	}
	cp := rule.Clone()
	cp.Conditions["machine_like"] = BoolValue(true)
	cp.Explanation[0] = "changed"
	if len(rule.Conditions) != 1 || rule.Explanation[0] != "first" {
		t.Fatalf("clone shares state with the original: %+v", rule)
	}
}
