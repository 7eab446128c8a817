package query

import "fmt"

// InvalidFiltersError reports a malformed filter value. It is raised
// before any request is built and is never sent over the network.
type InvalidFiltersError struct {
	Field  string
	Reason string
}

func (e *InvalidFiltersError) Error() string {
	if e.Field == "" {
		return "invalid filters: " + e.Reason
	}
	return fmt.Sprintf("invalid filters: %s: %s", e.Field, e.Reason)
}

// InvalidRangeError reports a date range whose start is after its end.
type InvalidRangeError struct {
	From string
	To   string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: %s is after %s", e.From, e.To)
}
