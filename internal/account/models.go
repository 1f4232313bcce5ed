// Package account provisions login accounts for credential recipients,
// mirroring how the platform gives each recipient a way to sign in and
// view their earned credentials.
package account

import "time"

// Account is a login identity tied to a recipient profile by email.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Confirmed    bool
	CreatedAt    time.Time
}
