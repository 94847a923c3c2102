// Package auth provides staff authentication and role guards for the
// admin, production and payment surfaces.
package auth

import "time"

// Staff roles.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User represents a staff account.
type User struct {
	ID           int64
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
