package domain

import "context"

// Transaction exposes the mutations a persistence implementation must
// support within an atomic scope. Validation failures leave the committed
// state untouched.
type Transaction interface {
	CreateRule(draft RuleDraft) (Rule, error)
	UpdateRule(id string, patch RulePatch) (Rule, error)
	DeleteRule(id string) error
	AppendRecord(record ClassificationRecord) (ClassificationRecord, error)
	MarkSeeded()
	Seeded() bool
	FindRule(id string) (Rule, bool)
	ListRules(goal GoalType) []Rule
}

// TransactionView provides read-only access to a consistent snapshot.
type TransactionView interface {
	ListRules(goal GoalType) []Rule
	FindRule(id string) (Rule, bool)
	ListRecords() []ClassificationRecord
	Seeded() bool
}

// PersistentStore is a minimal abstraction over durable backends. It
// mirrors the subset of store capabilities used directly by higher
// layers; implementations guard mutations behind a single exclusion
// scope so concurrent transactions cannot interleave.
type PersistentStore interface {
	RuleSource
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error
	GetRule(id string) (Rule, bool)
	ListRules() []Rule
	ListRecords() []ClassificationRecord
	Seeded() bool
}
