/*
report.go - Balance report assembly

PURPOSE:
  Packages the calculator and simplifier output into the shape consumed by
  presentation code: per-user net positions plus a settlement plan.

NO PARTIAL REPORTS:
  When validation fails, Build returns the InconsistentLedgerError with the
  full violation list and no report at all. The caller decides whether to
  block the view, warn, or fix the data.
*/
package ledger

// BalanceReport is the complete derived view of one group's ledger:
// a net position per user and a minimal settlement plan. Reports are
// recomputed from the snapshot on every call and never cached here.
type BalanceReport struct {
	GroupID GroupID
	PerUser map[UserID]NetPosition
	Plan    []SettlementTransfer
}

// Build validates the snapshot, computes net positions, and derives the
// settlement plan. Building the same snapshot twice yields identical
// reports.
func Build(snap Snapshot) (*BalanceReport, error) {
	positions, err := ComputeNetPositions(snap)
	if err != nil {
		return nil, err
	}
	return &BalanceReport{
		GroupID: snap.GroupID,
		PerUser: positions,
		Plan:    Simplify(positions),
	}, nil
}
