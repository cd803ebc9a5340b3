package domain

// Principal is the caller resolved by the identity provider. The service only
// reads it; user rows and balances live in the external system of record.
type Principal struct {
	UserID string
	Email  string
}

// Valid reports whether the principal carries a user identifier.
func (p Principal) Valid() bool {
	return p.UserID != ""
}
