package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fleetrent/backend/internal/domain/ledger"
)

// Tier represents the escalation level of a reminder
type Tier string

const (
	TierUpcoming Tier = "upcoming"
	TierDue      Tier = "due"
)

// OverdueTier returns the overdue tier for the given escalation level (1-based)
func OverdueTier(level int) Tier {
	return Tier(fmt.Sprintf("overdue_%d", level))
}

// String returns the string representation of Tier
func (t Tier) String() string {
	return string(t)
}

// IsOverdue reports whether the tier is an overdue escalation
func (t Tier) IsOverdue() bool {
	return strings.HasPrefix(string(t), "overdue_")
}

// OverdueLevel returns the escalation level for overdue tiers
func (t Tier) OverdueLevel() (int, bool) {
	if !t.IsOverdue() {
		return 0, false
	}
	level, err := strconv.Atoi(strings.TrimPrefix(string(t), "overdue_"))
	if err != nil || level < 1 {
		return 0, false
	}
	return level, true
}

// IsValid checks whether the tier is one of the known reminder tiers
func (t Tier) IsValid() bool {
	if t == TierUpcoming || t == TierDue {
		return true
	}
	_, ok := t.OverdueLevel()
	return ok
}

// Classify maps a calendar-day offset to a reminder tier.
//
// The offset is dueDate minus today in whole days: positive means the
// charge is not yet due, negative means it is overdue. A charge lands
// in at most one tier per day:
//
//	+2      upcoming
//	 0      due
//	-1      overdue_1
//	-7k     overdue_{k+1}, capped by the policy
//
// Every other offset produces no reminder.
func Classify(daysUntilDue int, policy Policy) (Tier, bool) {
	switch {
	case daysUntilDue == 2:
		if !policy.UpcomingEnabled {
			return "", false
		}
		return TierUpcoming, true
	case daysUntilDue == 0:
		if !policy.DueEnabled {
			return "", false
		}
		return TierDue, true
	case daysUntilDue < 0:
		if !policy.OverdueEnabled {
			return "", false
		}
		overdueDays := -daysUntilDue
		var level int
		switch {
		case overdueDays == 1:
			level = 1
		case overdueDays%7 == 0:
			level = overdueDays/7 + 1
		default:
			return "", false
		}
		if level > policy.MaxOverdueReminders {
			return "", false
		}
		return OverdueTier(level), true
	default:
		return "", false
	}
}

// ClassifyCharge classifies a ledger charge for the given day. Charges
// without a due date never produce reminders.
func ClassifyCharge(c *ledger.Charge, today time.Time, policy Policy) (Tier, bool) {
	if c == nil || !c.IsOpen() {
		return "", false
	}
	days, ok := c.DaysUntilDue(today)
	if !ok {
		return "", false
	}
	return Classify(days, policy)
}
