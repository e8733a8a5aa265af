package domain

import "fmt"

// ValidationError reports a malformed or incomplete rule draft, patch or
// fact set. The store is never mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rule: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation referencing an unknown rule ID.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("rule %s not found", e.ID)
}

// InvalidGoalError reports a classify call with an unrecognized goal type.
type InvalidGoalError struct {
	Goal string
}

func (e InvalidGoalError) Error() string {
	return fmt.Sprintf("unknown goal type %q", e.Goal)
}
