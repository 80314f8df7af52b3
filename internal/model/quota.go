package model

import "time"

// Quota tracks how many quiz generations a user may still request in
// the current window.  There is exactly one row per user in the
// `quotas` table, created together with the user.
//
// Fields:
//  UserID    – owning user (also the primary key).
//  Remaining – generations left in the current window; never negative.
//  LastReset – start of the current window.
type Quota struct {
	UserID    uint64    // quotas.user_id
	Remaining int       // quotas.remaining
	LastReset time.Time // quotas.last_reset
}
