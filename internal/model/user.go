package model

import "time"

// Role names carried in the access token's "role" claim.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User represents an account as stored in the `users` table. Accounts are
// created by registration, by Google sign-in, or by the startup admin seed.
//
// Fields:
//  ID           – primary key identifier.
//  Username     – unique login name.
//  PasswordHash – bcrypt hash (older accounts may hold a scrypt "hash.salt").
//  Email        – optional contact address.
//  EmailVerified – set when the address was proven by Google or configured
//                  for the seeded admin; only such accounts link to Google.
//  IsAdmin      – grants the ADMIN role.
//  GoogleID     – Google subject identifier, nil for password-only users.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID            uint64    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Email         *string   `json:"email"`
	EmailVerified bool      `json:"-"`
	IsAdmin       bool      `json:"isAdmin"`
	GoogleID      *string   `json:"googleId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Role maps the admin flag onto the token role claim.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Session models an entry in the `sessions` table. Only the SHA-256 hash of
// the refresh token handed to the browser is stored.
type Session struct {
	ID        uint64     // sessions.id
	UserID    uint64     // sessions.user_id
	TokenHash string     // sessions.token_hash
	ExpiresAt time.Time  // sessions.expires_at
	RevokedAt *time.Time // sessions.revoked_at (nullable)
	CreatedAt time.Time  // sessions.created_at
}
