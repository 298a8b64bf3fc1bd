package credentials

import "time"

type Credential struct {
	ID           string
	UserID       string
	PasswordHash string
	HashVersion  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account is the result of a successful register or login.
type Account struct {
	UserID string
	Email  string
}
