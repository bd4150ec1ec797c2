package schedule

import "fmt"

// ValidationError reports a rejected schedule edit. The schedule is left
// unchanged whenever one is returned.
type ValidationError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}
