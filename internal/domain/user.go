package domain

import "time"

// TokenSchemeBearer is the only scheme the mTolling API issues.
const TokenSchemeBearer = "Bearer"

// AuthToken is the session credential returned by the login endpoint.
type AuthToken struct {
	Value     string
	Scheme    string
	IssuedAt  time.Time
	ExpiresAt *time.Time // nil when the token carries no expiry metadata
}

// IsExpired reports whether the token carries an expiry that has passed.
func (t AuthToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// IsValid reports whether the token is non-empty and not expired.
func (t AuthToken) IsValid(now time.Time) bool {
	return t.Value != "" && !t.IsExpired(now)
}

// User represents the signed-in account. Only the email is persisted.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"is_logged_in"`
}
