package oauth

import "time"

const (
	// DefaultTokenLifetime is assumed when the server omits expires_in.
	DefaultTokenLifetime = 3600

	// ExpirySafetyFactor shortens the advertised lifetime so the token is
	// refreshed before the server considers it expired.
	ExpirySafetyFactor = 0.9

	// MaxTokenLifetime caps the computed lifetime regardless of what the
	// server advertises.
	MaxTokenLifetime = 24 * time.Hour
)

// GetAccessTokenExpirationDate converts a token lifetime in seconds into an
// absolute expiry in Unix milliseconds, using the current time. A lifetime
// of zero or less means "not provided" and DefaultTokenLifetime is used.
func GetAccessTokenExpirationDate(expiresIn int) int64 {
	return expirationDate(time.Now(), expiresIn).UnixMilli()
}

// expirationDate returns min(now + 0.9*lifetime, now + 24h).
func expirationDate(now time.Time, expiresIn int) time.Time {
	if expiresIn <= 0 {
		expiresIn = DefaultTokenLifetime
	}

	lifetime := time.Duration(float64(expiresIn) * ExpirySafetyFactor * float64(time.Second))
	if lifetime > MaxTokenLifetime {
		lifetime = MaxTokenLifetime
	}
	return now.Add(lifetime)
}
