package models

import "time"

// User is an identity record. PasswordHash never leaves the server.
// IdentityVerified only moves from false to true, and ProofReference is set
// exactly when IdentityVerified is.
type User struct {
	ID               string
	Email            string
	UserName         string
	PasswordHash     string
	IdentityVerified bool
	ProofReference   *string
	CreatedAt        time.Time
}
