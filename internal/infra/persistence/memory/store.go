// Package memory implements the transactional in-memory store that backs
// every persistence driver. Mutations run against a cloned state that is
// swapped in only when the transaction function succeeds, so a failed
// add/update/remove leaves the committed state untouched.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"batikcore/pkg/domain"
)

type state struct {
	rules   map[string]domain.Rule
	records []domain.ClassificationRecord
	seq     uint64
	seeded  bool
}

func newState() state {
	return state{rules: make(map[string]domain.Rule)}
}

func (s state) clone() state {
	cloned := newState()
	cloned.seq = s.seq
	cloned.seeded = s.seeded
	for id, rule := range s.rules {
		cloned.rules[id] = rule.Clone()
	}
	cloned.records = make([]domain.ClassificationRecord, 0, len(s.records))
	for _, rec := range s.records {
		cloned.records = append(cloned.records, rec.Clone())
	}
	return cloned
}

func (s state) rulesByGoal(goal domain.GoalType) []domain.Rule {
	out := make([]domain.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if goal == "" || rule.Type == goal {
			out = append(out, rule.Clone())
		}
	}
	domain.SortRules(out)
	return out
}

// Store provides the in-memory transactional rule and history store.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
	idFn  func() string
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newState(),
		nowFn: func() time.Time { return time.Now().UTC() },
		idFn:  uuid.NewString,
	}
}

// Transaction applies mutations to a cloned state until committed.
type Transaction struct {
	store *Store
	state *state
	now   time.Time
}

var _ domain.Transaction = (*Transaction)(nil)

// view adapts a state to the read-only TransactionView contract.
type view struct {
	state *state
}

var _ domain.TransactionView = view{}

func (v view) ListRules(goal domain.GoalType) []domain.Rule { return v.state.rulesByGoal(goal) }

func (v view) FindRule(id string) (domain.Rule, bool) {
	rule, ok := v.state.rules[id]
	if !ok {
		return domain.Rule{}, false
	}
	return rule.Clone(), true
}

func (v view) ListRecords() []domain.ClassificationRecord {
	out := make([]domain.ClassificationRecord, 0, len(v.state.records))
	for _, rec := range v.state.records {
		out = append(out, rec.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (v view) Seeded() bool { return v.state.seeded }

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy replaces the committed state only when fn returns nil.
func (s *Store) RunInTransaction(_ context.Context, fn func(domain.Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := s.state.clone()
	tx := &Transaction{store: s, state: &cloned, now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = cloned
	return nil
}

// View executes fn against a read-only snapshot of the committed state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

// CreateRule validates the draft, assigns a fresh ID and the next
// insertion sequence, and stores the rule.
func (tx *Transaction) CreateRule(draft domain.RuleDraft) (domain.Rule, error) {
	if err := draft.Validate(); err != nil {
		return domain.Rule{}, err
	}
	tx.state.seq++
	rule := domain.Rule{
		ID:          tx.store.idFn(),
		Type:        draft.Type,
		Priority:    draft.Priority,
		Seq:         tx.state.seq,
		Conditions:  draft.Conditions.Clone(),
		Conclusion:  draft.Conclusion,
		Explanation: append([]string(nil), draft.Explanation...),
		CreatedAt:   tx.now,
		UpdatedAt:   tx.now,
	}
	tx.state.rules[rule.ID] = rule.Clone()
	return rule, nil
}

// UpdateRule merges the patch into the stored rule, validates the merged
// result and commits it atomically. ID and sequence are stable across
// edits.
func (tx *Transaction) UpdateRule(id string, patch domain.RulePatch) (domain.Rule, error) {
	current, ok := tx.state.rules[id]
	if !ok {
		return domain.Rule{}, domain.NotFoundError{ID: id}
	}
	merged, err := patch.Apply(current)
	if err != nil {
		return domain.Rule{}, err
	}
	merged.ID = id
	merged.Seq = current.Seq
	merged.CreatedAt = current.CreatedAt
	merged.UpdatedAt = tx.now
	tx.state.rules[id] = merged.Clone()
	return merged, nil
}

// DeleteRule removes a rule permanently.
func (tx *Transaction) DeleteRule(id string) error {
	if _, ok := tx.state.rules[id]; !ok {
		return domain.NotFoundError{ID: id}
	}
	delete(tx.state.rules, id)
	return nil
}

// AppendRecord stores a classification record for audit display.
func (tx *Transaction) AppendRecord(record domain.ClassificationRecord) (domain.ClassificationRecord, error) {
	if record.ID == "" {
		record.ID = tx.store.idFn()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = tx.now
	}
	tx.state.records = append(tx.state.records, record.Clone())
	return record, nil
}

// MarkSeeded records that the default rule pack has been installed.
func (tx *Transaction) MarkSeeded() { tx.state.seeded = true }

// Seeded reports whether the default rule pack was ever installed.
func (tx *Transaction) Seeded() bool { return tx.state.seeded }

// FindRule retrieves a rule by ID from the transaction state.
func (tx *Transaction) FindRule(id string) (domain.Rule, bool) {
	rule, ok := tx.state.rules[id]
	if !ok {
		return domain.Rule{}, false
	}
	return rule.Clone(), true
}

// ListRules returns the transaction-state rules of the goal type in
// evaluation order.
func (tx *Transaction) ListRules(goal domain.GoalType) []domain.Rule {
	return tx.state.rulesByGoal(goal)
}

// Read helpers over committed state ------------------------------------

// GetRule retrieves a rule by ID from committed state.
func (s *Store) GetRule(id string) (domain.Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.state.rules[id]
	if !ok {
		return domain.Rule{}, false
	}
	return rule.Clone(), true
}

// RulesByGoal returns committed rules of the goal type sorted by priority
// ascending with insertion order as the tie-break.
func (s *Store) RulesByGoal(goal domain.GoalType) []domain.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.rulesByGoal(goal)
}

// ListRules returns all committed rules in evaluation order.
func (s *Store) ListRules() []domain.Rule {
	return s.RulesByGoal("")
}

// ListRecords returns committed history records, newest first.
func (s *Store) ListRecords() []domain.ClassificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ClassificationRecord, 0, len(s.state.records))
	for _, rec := range s.state.records {
		out = append(out, rec.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Seeded reports whether the default rule pack was ever installed.
func (s *Store) Seeded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.seeded
}

// Snapshot is the serializable form of the store state used by durable
// backends. Rules are ordered by insertion sequence for stable output.
type Snapshot struct {
	Rules   []domain.Rule                 `json:"rules"`
	Records []domain.ClassificationRecord `json:"records"`
	Seeded  bool                          `json:"seeded"`
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := make([]domain.Rule, 0, len(s.state.rules))
	for _, rule := range s.state.rules {
		rules = append(rules, rule.Clone())
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Seq < rules[j].Seq })
	records := make([]domain.ClassificationRecord, 0, len(s.state.records))
	for _, rec := range s.state.records {
		records = append(records, rec.Clone())
	}
	return Snapshot{Rules: rules, Records: records, Seeded: s.state.seeded}
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := newState()
	st.seeded = snapshot.Seeded
	for _, rule := range snapshot.Rules {
		st.rules[rule.ID] = rule.Clone()
		if rule.Seq > st.seq {
			st.seq = rule.Seq
		}
	}
	st.records = make([]domain.ClassificationRecord, 0, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		st.records = append(st.records, rec.Clone())
	}
	s.state = st
}

var _ domain.PersistentStore = (*Store)(nil)
