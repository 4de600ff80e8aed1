package identity

import "github.com/authintegrate/authintegrate/internal/store"

// Registration is a self-service profile request for an existing hardware user.
type Registration struct {
	UserID   int
	Name     string
	Email    string
	Mobile   *string
	Password string
}

// Credentials is an email/password login attempt.
type Credentials struct {
	Email    string
	Password string
}

// Update is an administrator edit of a profile. Nil fields are unchanged; an
// empty Mobile clears the stored number.
type Update struct {
	Name   *string
	Email  *string
	Mobile *string
	Role   *store.Role
}
