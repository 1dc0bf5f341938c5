package domain

// criticalMilestones fire regardless of the configured threshold.
var criticalMilestones = [...]int{3, 1, 0}

// overdueNudge is the single overdue day that fires by default.
const overdueNudge = -1

// Deduper answers whether a resource was already notified on a given day.
type Deduper interface {
	WasNotifiedOn(r Resource, day Date) bool
}

// SameDayDeduper compares the stored lastNotified string with the day.
type SameDayDeduper struct{}

func (SameDayDeduper) WasNotifiedOn(r Resource, day Date) bool {
	last := r.LastNotified()
	return last != "" && last == day.String()
}

// Rules tunes the decision engine.
type Rules struct {
	// OverdueRepeatDays re-notifies every N days after the -1 nudge.
	// Zero keeps the single overdue nudge.
	OverdueRepeatDays int
}

// Decision is the per-resource, per-sweep evaluation result.
type Decision struct {
	DaysRemaining      int  `json:"daysRemaining"`
	EffectiveThreshold int  `json:"effectiveThreshold"`
	ShouldNotify       bool `json:"shouldNotify"`
	AlreadySentToday   bool `json:"alreadySentToday"`
}

// ShouldFireToday reports whether a reminder is due: the threshold matches, a
// critical milestone (3, 1, 0 days) is reached, or the resource became overdue
// yesterday. Nothing fires twice on the same day.
func ShouldFireToday(daysRemaining, thresholdDays int, lastNotified string, today Date) bool {
	if lastNotified != "" && lastNotified == today.String() {
		return false
	}
	return Rules{}.due(daysRemaining, thresholdDays)
}

func (rl Rules) due(daysRemaining, thresholdDays int) bool {
	if daysRemaining == NoExpiry {
		return false
	}
	if daysRemaining == thresholdDays || daysRemaining == overdueNudge {
		return true
	}
	for _, m := range criticalMilestones {
		if daysRemaining == m {
			return true
		}
	}
	if rl.OverdueRepeatDays > 0 && daysRemaining < overdueNudge {
		return (overdueNudge-daysRemaining)%rl.OverdueRepeatDays == 0
	}
	return false
}

// Decide evaluates one resource for today's sweep.
func Decide(r Resource, s Settings, today Date, rules Rules, dedupe Deduper) Decision {
	if dedupe == nil {
		dedupe = SameDayDeduper{}
	}
	policy := ResolvePolicy(r, s)
	d := Decision{
		DaysRemaining:      DaysRemaining(r.ExpiryDate, today),
		EffectiveThreshold: policy.ThresholdDays,
		AlreadySentToday:   dedupe.WasNotifiedOn(r, today),
	}
	if !policy.Enabled {
		return d
	}
	d.ShouldNotify = !d.AlreadySentToday && rules.due(d.DaysRemaining, d.EffectiveThreshold)
	return d
}
