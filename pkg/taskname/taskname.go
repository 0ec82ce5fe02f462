package taskname

const (
	// CampaignExpireSweep transitions past-deadline campaigns that never
	// reached their goal into a terminal failed state.
	CampaignExpireSweep = "campaign:expire:sweep"

	// LedgerAudit recomputes campaign totals from completed donations and
	// reports drift.
	LedgerAudit = "ledger:audit"
)
