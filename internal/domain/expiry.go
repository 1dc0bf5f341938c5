package domain

import "math"

// NoExpiry is returned by DaysRemaining for resources without an expiry date.
// It sorts after every dated resource and never equals a valid threshold.
const NoExpiry = math.MaxInt32

// DaysRemaining returns the signed number of days from today until expiry:
// positive before expiry, zero on the day, negative when overdue.
func DaysRemaining(expiry *Date, today Date) int {
	if expiry == nil || expiry.IsZero() {
		return NoExpiry
	}
	return today.DaysUntil(*expiry)
}
