// Package rulepack encodes and decodes YAML rule packs: portable bundles
// of rule drafts used for the embedded seed pack and for CLI
// import/export.
package rulepack

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"batikcore/pkg/domain"
)

// Pack is an ordered bundle of rule drafts. Order matters: drafts are
// inserted in pack order, which fixes the insertion-sequence tie-break.
type Pack struct {
	Rules []domain.RuleDraft `yaml:"rules"`
}

// Decode parses a YAML pack and validates every draft. Unknown fields
// are rejected so malformed payloads fail loudly.
func Decode(data []byte) (Pack, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var pack Pack
	if err := dec.Decode(&pack); err != nil {
		if errors.Is(err, io.EOF) {
			return Pack{}, fmt.Errorf("decode rule pack: empty document")
		}
		return Pack{}, fmt.Errorf("decode rule pack: %w", err)
	}
	if len(pack.Rules) == 0 {
		return Pack{}, fmt.Errorf("decode rule pack: no rules")
	}
	for i, draft := range pack.Rules {
		if err := draft.Validate(); err != nil {
			return Pack{}, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return pack, nil
}

// Encode serializes stored rules as a pack of drafts, dropping store
// assigned identity so the output can be imported elsewhere. Input order
// is preserved.
func Encode(rules []domain.Rule) ([]byte, error) {
	pack := Pack{Rules: make([]domain.RuleDraft, 0, len(rules))}
	for _, rule := range rules {
		pack.Rules = append(pack.Rules, domain.RuleDraft{
			Type:        rule.Type,
			Priority:    rule.Priority,
			Conditions:  rule.Conditions.Clone(),
			Conclusion:  rule.Conclusion,
			Explanation: append([]string(nil), rule.Explanation...),
		})
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(pack); err != nil {
		return nil, fmt.Errorf("encode rule pack: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode rule pack: %w", err)
	}
	return buf.Bytes(), nil
}
