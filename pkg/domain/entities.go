// Package domain defines the batikcore entities: classification rules,
// fact sets, goal types and the deterministic inference engine that
// evaluates them. Persistence interfaces live in persistence.go so that
// durable backends can mirror the in-memory semantics.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

// GoalType partitions rules into independent evaluation pools.
type GoalType string

const (
	// GoalTechnique decides the production technique of a sample.
	GoalTechnique GoalType = "technique"
	// GoalQuality decides the quality grade of a sample.
	GoalQuality GoalType = "quality"
)

// GoalTypes lists the known goal types in evaluation order.
func GoalTypes() []GoalType {
	return []GoalType{GoalTechnique, GoalQuality}
}

// Valid reports whether the goal type is one of the known enumeration values.
func (g GoalType) Valid() bool {
	return g == GoalTechnique || g == GoalQuality
}

// ParseGoalType maps a raw string onto a goal type.
func ParseGoalType(raw string) (GoalType, error) {
	g := GoalType(raw)
	if !g.Valid() {
		return "", InvalidGoalError{Goal: raw}
	}
	return g, nil
}

// ValueKind tags the scalar kind carried by a Value.
type ValueKind string

const (
	// KindBool marks a boolean characteristic value.
	KindBool ValueKind = "bool"
	// KindInt marks an integer characteristic value.
	KindInt ValueKind = "int"
)

// Value is a tagged scalar: either a boolean or an integer. The explicit
// kind tag keeps malformed payloads out of the store at add/update time
// instead of failing during evaluation.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
}

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue constructs an integer value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// Kind returns the value kind tag.
func (v Value) Kind() ValueKind { return v.kind }

// Bool returns the boolean payload; meaningful only when Kind()==KindBool.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload; meaningful only when Kind()==KindInt.
func (v Value) Int() int64 { return v.i }

// Equal reports exact equality: same kind and same payload, no coercion.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	default:
		return "<unset>"
	}
}

// MarshalJSON encodes the value as a native JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	default:
		return nil, fmt.Errorf("marshal value: unset kind")
	}
}

// UnmarshalJSON decodes a native JSON scalar, rejecting strings, nulls,
// fractional numbers and composite values.
func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		if f != math.Trunc(f) {
			return fmt.Errorf("unmarshal value: %v is not an integer", f)
		}
		*v = IntValue(int64(f))
		return nil
	}
	return fmt.Errorf("unmarshal value: %s is neither boolean nor integer", string(data))
}

// MarshalYAML encodes the value as a native YAML scalar.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i, nil
	default:
		return nil, fmt.Errorf("marshal value: unset kind")
	}
}

// UnmarshalYAML decodes a YAML boolean or integer scalar.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return err
		}
		*v = IntValue(i)
		return nil
	default:
		return fmt.Errorf("unmarshal value: %s is neither boolean nor integer", node.Tag)
	}
}

// Conditions maps characteristic keys to the exact value a rule requires.
type Conditions map[string]Value

// Clone returns an independent copy of the condition map.
func (c Conditions) Clone() Conditions {
	if c == nil {
		return nil
	}
	out := make(Conditions, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// FactSet holds the observed characteristics supplied for one
// classification attempt. A missing key means "unknown" and is distinct
// from an explicit false or zero; the engine never infers values for
// missing keys.
type FactSet map[string]Value

// NewFactSet validates the supplied values against the characteristic
// catalog and returns an immutable-by-convention fact set. Keys outside
// the catalog are accepted as-is; cataloged keys must carry the declared
// kind.
func NewFactSet(values map[string]Value) (FactSet, error) {
	fs := make(FactSet, len(values))
	for key, value := range values {
		if err := checkCatalogKind(key, value); err != nil {
			return nil, err
		}
		fs[key] = value
	}
	return fs, nil
}

// Clone returns an independent copy of the fact set.
func (f FactSet) Clone() FactSet {
	if f == nil {
		return nil
	}
	out := make(FactSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Characteristic describes one entry of the known characteristic
// vocabulary. The catalog is advisory for callers building input forms;
// the core enforces only the declared kind for cataloged keys.
type Characteristic struct {
	Key   string    `json:"key"`
	Kind  ValueKind `json:"kind"`
	Label string    `json:"label"`
}

var characteristicCatalog = []Characteristic{
	{Key: "pattern_repeated", Kind: KindBool, Label: "pattern repeats with perfect regularity"},
	{Key: "strokes_irregular", Kind: KindBool, Label: "strokes are irregular and varied"},
	{Key: "wax_visible", Kind: KindBool, Label: "wax residue is visible"},
	{Key: "machine_like", Kind: KindBool, Label: "pattern is uniform like a machine print"},
	{Key: "color_sharp", Kind: KindBool, Label: "colors are sharp"},
	{Key: "color_faded", Kind: KindBool, Label: "colors look faded"},
	{Key: "fabric_smooth", Kind: KindBool, Label: "fabric feels smooth"},
	{Key: "defect_count", Kind: KindInt, Label: "number of motif defects"},
}

// Characteristics returns the known characteristic catalog.
func Characteristics() []Characteristic {
	out := make([]Characteristic, len(characteristicCatalog))
	copy(out, characteristicCatalog)
	return out
}

func checkCatalogKind(key string, value Value) error {
	for _, c := range characteristicCatalog {
		if c.Key == key && c.Kind != value.Kind() {
			return ValidationError{Field: key, Reason: fmt.Sprintf("expected %s value, got %s", c.Kind, value.Kind())}
		}
	}
	return nil
}

// Rule is a stored condition-to-conclusion mapping with a priority and a
// human-readable explanation trail.
type Rule struct {
	ID          string     `json:"id"`
	Type        GoalType   `json:"type"`
	Priority    int64      `json:"priority"`
	Seq         uint64     `json:"seq"`
	Conditions  Conditions `json:"conditions"`
	Conclusion  string     `json:"conclusion"`
	Explanation []string   `json:"explanation"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns an independent copy of the rule.
func (r Rule) Clone() Rule {
	cp := r
	cp.Conditions = r.Conditions.Clone()
	cp.Explanation = append([]string(nil), r.Explanation...)
	return cp
}

// SatisfiedBy reports whether every condition key is present in the fact
// set with an exactly equal value. Absence never satisfies a condition.
func (r Rule) SatisfiedBy(facts FactSet) bool {
	for key, required := range r.Conditions {
		observed, ok := facts[key]
		if !ok || !observed.Equal(required) {
			return false
		}
	}
	return true
}

// RuleDraft is the payload for creating a rule. ID, sequence and
// timestamps are assigned by the store.
type RuleDraft struct {
	Type        GoalType   `json:"type" yaml:"type"`
	Priority    int64      `json:"priority" yaml:"priority"`
	Conditions  Conditions `json:"conditions" yaml:"conditions"`
	Conclusion  string     `json:"conclusion" yaml:"conclusion"`
	Explanation []string   `json:"explanation" yaml:"explanation"`
}

// Validate checks the draft invariants: known goal type, non-empty
// conclusion, non-empty well-typed conditions.
func (d RuleDraft) Validate() error {
	if !d.Type.Valid() {
		return ValidationError{Field: "type", Reason: fmt.Sprintf("unknown goal type %q", string(d.Type))}
	}
	if d.Conclusion == "" {
		return ValidationError{Field: "conclusion", Reason: "must not be empty"}
	}
	if len(d.Conditions) == 0 {
		return ValidationError{Field: "conditions", Reason: "must not be empty; a rule without conditions would match everything"}
	}
	for key, value := range d.Conditions {
		if key == "" {
			return ValidationError{Field: "conditions", Reason: "condition key must not be empty"}
		}
		if value.Kind() != KindBool && value.Kind() != KindInt {
			return ValidationError{Field: key, Reason: "condition value must be boolean or integer"}
		}
		if err := checkCatalogKind(key, value); err != nil {
			return err
		}
	}
	return nil
}

// RulePatch is a partial update. Nil fields keep the current value; a
// non-nil Conditions map replaces the condition set wholesale.
type RulePatch struct {
	Type        *GoalType  `json:"type,omitempty"`
	Priority    *int64     `json:"priority,omitempty"`
	Conditions  Conditions `json:"conditions,omitempty"`
	Conclusion  *string    `json:"conclusion,omitempty"`
	Explanation []string   `json:"explanation,omitempty"`
}

// Apply merges the patch into a copy of the rule and validates the merged
// result. The receiver rule is never modified.
func (p RulePatch) Apply(rule Rule) (Rule, error) {
	merged := rule.Clone()
	if p.Type != nil {
		merged.Type = *p.Type
	}
	if p.Priority != nil {
		merged.Priority = *p.Priority
	}
	if p.Conditions != nil {
		merged.Conditions = p.Conditions.Clone()
	}
	if p.Conclusion != nil {
		merged.Conclusion = *p.Conclusion
	}
	if p.Explanation != nil {
		merged.Explanation = append([]string(nil), p.Explanation...)
	}
	draft := RuleDraft{
		Type:        merged.Type,
		Priority:    merged.Priority,
		Conditions:  merged.Conditions,
		Conclusion:  merged.Conclusion,
		Explanation: merged.Explanation,
	}
	if err := draft.Validate(); err != nil {
		return Rule{}, err
	}
	return merged, nil
}

// ClassificationRecord is the combined outcome of one sample
// classification: both goal type results plus the request context. It is
// what history persists and what callers render.
type ClassificationRecord struct {
	ID        string               `json:"id"`
	Facts     FactSet              `json:"facts"`
	MotifName string               `json:"motif_name,omitempty"`
	ImageKey  string               `json:"image_key,omitempty"`
	Technique ClassificationResult `json:"technique"`
	Quality   ClassificationResult `json:"quality"`
	CreatedAt time.Time            `json:"created_at"`
}

// Clone returns an independent copy of the record.
func (r ClassificationRecord) Clone() ClassificationRecord {
	cp := r
	cp.Facts = r.Facts.Clone()
	cp.Technique = r.Technique.Clone()
	cp.Quality = r.Quality.Clone()
	return cp
}
