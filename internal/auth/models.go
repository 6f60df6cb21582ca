package auth

import "time"

// User is the authentication-side view of an account: identity plus the
// bcrypt credential hash. The vault keeps its own user record; the two are
// bridged at the composition point.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Token is a signed access token with its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserClaims describes the validated identity extracted from an access token.
type UserClaims struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}
