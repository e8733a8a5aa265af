package rulepack

import (
	"strings"
	"testing"

	"batikcore/pkg/domain"
)

const samplePack = `rules:
  - type: technique
    priority: 1
    conditions:
      strokes_irregular: true
      wax_visible: true
    conclusion: Batik Tulis
    explanation:
      - Hand drawn strokes with wax residue.
  - type: quality
    priority: 2
    conditions:
      defect_count: 1
    conclusion: Premium
`

func TestDecodeValidPack(t *testing.T) {
	pack, err := Decode([]byte(samplePack))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pack.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(pack.Rules))
	}
	first := pack.Rules[0]
	if first.Type != domain.GoalTechnique || first.Conclusion != "Batik Tulis" {
		t.Fatalf("unexpected first draft: %+v", first)
	}
	if !first.Conditions["wax_visible"].Equal(domain.BoolValue(true)) {
		t.Fatalf("boolean condition decoded wrong: %+v", first.Conditions)
	}
	if !pack.Rules[1].Conditions["defect_count"].Equal(domain.IntValue(1)) {
		t.Fatalf("integer condition decoded wrong: %+v", pack.Rules[1].Conditions)
	}
}

func TestDecodeRejectsMalformedPacks(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"no rules", "rules: []\n"},
		{"unknown field", "rules:\n  - type: technique\n    priority: 1\n    conditions:\n      wax_visible: true\n    conclusion: X\n    weight: 3\n"},
		{"string condition value", "rules:\n  - type: technique\n    priority: 1\n    conditions:\n      wax_visible: maybe\n    conclusion: X\n"},
		{"missing conclusion", "rules:\n  - type: technique\n    priority: 1\n    conditions:\n      wax_visible: true\n"},
		{"unknown goal", "rules:\n  - type: origin\n    priority: 1\n    conditions:\n      wax_visible: true\n    conclusion: X\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.doc)); err == nil {
				t.Fatalf("expected decode failure")
			}
		})
	}
}

func TestEncodeDropsStoreIdentity(t *testing.T) {
	rules := []domain.Rule{
		{
			ID:         "abc",
			Type:       domain.GoalQuality,
			Priority:   3,
			Seq:        42,
			Conditions: domain.Conditions{"color_faded": domain.BoolValue(true)},
			Conclusion: "Reject",
		},
	}
	data, err := Encode(rules)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	doc := string(data)
	if strings.Contains(doc, "abc") || strings.Contains(doc, "seq") {
		t.Fatalf("encoded pack leaks store identity:\n%s", doc)
	}

	pack, err := Decode(data)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if len(pack.Rules) != 1 || pack.Rules[0].Conclusion != "Reject" {
		t.Fatalf("round trip lost rule: %+v", pack.Rules)
	}
}
