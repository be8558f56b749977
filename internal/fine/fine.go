// Package fine computes overdue penalties. It is pure date arithmetic and
// carries no state.
package fine

import "time"

// PerDayRate is the penalty in currency units per whole day past due.
const PerDayRate = 5

// Amount returns the fine owed when an item due on due is returned on
// actual. Returns on or before the due date owe nothing; there is no
// credit for early returns.
func Amount(due, actual time.Time) int64 {
	if !actual.After(due) {
		return 0
	}
	days := int64(actual.Sub(due) / (24 * time.Hour))
	return days * PerDayRate
}
