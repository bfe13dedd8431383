/*
errors.go - Error types for the balance core

PURPOSE:
  Sentinel errors for errors.Is checks plus structured errors that carry
  the violation context callers need to fix the data at its source.

USAGE:
  report, err := ledger.Build(snap)
  if err != nil {
      var inconsistent *ledger.InconsistentLedgerError
      if errors.As(err, &inconsistent) {
          // surface inconsistent.Violations to the user
      }
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// ErrInconsistentLedger is returned when computation is refused because
// validation found violations. Use errors.Is to detect it; use errors.As
// with *InconsistentLedgerError to retrieve the violation list.
var ErrInconsistentLedger = errors.New("inconsistent ledger")

// InconsistentLedgerError carries every violation found in a single
// validation pass so the caller can surface them together.
type InconsistentLedgerError struct {
	GroupID    GroupID
	Violations []Violation
}

func (e *InconsistentLedgerError) Error() string {
	return fmt.Sprintf("inconsistent ledger for group %s: %d violation(s), first: %s",
		e.GroupID, len(e.Violations), e.Violations[0])
}

func (e *InconsistentLedgerError) Unwrap() error {
	return ErrInconsistentLedger
}
