package reminder

import "github.com/fleetrent/backend/internal/domain/shared"

// Policy controls which reminder tiers a run may emit. It is built
// from configuration once and passed explicitly into every
// classification call, so classification stays a pure function.
type Policy struct {
	UpcomingEnabled       bool
	DueEnabled            bool
	OverdueEnabled        bool
	MaxOverdueReminders   int
	RespectCreditCoverage bool
}

// DefaultPolicy returns the policy used when configuration is silent
func DefaultPolicy() Policy {
	return Policy{
		UpcomingEnabled:       true,
		DueEnabled:            true,
		OverdueEnabled:        true,
		MaxOverdueReminders:   4,
		RespectCreditCoverage: true,
	}
}

// Validate checks that the policy is internally consistent
func (p Policy) Validate() error {
	if p.MaxOverdueReminders < 0 {
		return shared.NewDomainError("INVALID_POLICY", "Max overdue reminders cannot be negative")
	}
	if p.OverdueEnabled && p.MaxOverdueReminders == 0 {
		return shared.NewDomainError("INVALID_POLICY", "Overdue reminders enabled but max overdue reminders is zero")
	}
	return nil
}
