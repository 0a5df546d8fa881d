package domain

import "time"

// UsedSelectionToken records that an org-selection token was exchanged.
// ExpiresAt is when the token stops verifying, clock-skew leeway included.
// Rows are only needed until then.
type UsedSelectionToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	UsedAt    time.Time
}
