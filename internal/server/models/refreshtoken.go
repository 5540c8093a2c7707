package models

import "time"

// RefreshToken is one live session record. At most one row exists per
// (UserID, DeviceKey) pair; Token is globally unique and never reused
// after rotation or deletion.
type RefreshToken struct {
	Token     string
	UserID    string
	DeviceKey string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record's expiry window has passed at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
