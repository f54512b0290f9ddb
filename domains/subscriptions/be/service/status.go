package service

import "time"

// expiringSoonThreshold is the window, in days, in which a subscription is
// flagged as expiring soon.
const expiringSoonThreshold = 7

// secondsPerDay is the fixed day length used for remaining-day math. Partial
// days round up so a subscription is never shown expired while time remains.
const secondsPerDay = 86400

// DaysRemaining returns the whole days left until end, rounding partial days
// up. Zero or negative means expired.
func DaysRemaining(end, now time.Time) int {
	seconds := end.Unix() - now.Unix()
	if seconds <= 0 {
		return int(seconds / secondsPerDay)
	}
	return int((seconds + secondsPerDay - 1) / secondsPerDay)
}

// IsExpired reports whether a subscription ending at end has run out.
func IsExpired(end, now time.Time) bool {
	return DaysRemaining(end, now) <= 0
}

// IsExpiringSoon reports whether a subscription is inside the renewal-warning
// window: still running, but with at most seven days remaining.
func IsExpiringSoon(end, now time.Time) bool {
	days := DaysRemaining(end, now)
	return days > 0 && days <= expiringSoonThreshold
}

// UsageRatio reports current consumption against a cap as a fraction in
// [0, 1]. Unlimited caps (-1) always report zero.
func UsageRatio(current, cap int) float64 {
	if cap < 0 {
		return 0
	}
	if cap == 0 {
		if current > 0 {
			return 1
		}
		return 0
	}
	ratio := float64(current) / float64(cap)
	if ratio > 1 {
		return 1
	}
	return ratio
}
