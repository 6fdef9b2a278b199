package domain

import "time"

// UserRole separates ticket-filing customers from support agents.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAgent    UserRole = "agent"
)

// User is the domain model for anyone who can sign in: customers file
// tickets, agents triage and resolve them.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAgent reports whether the user holds the agent role.
func (u *User) IsAgent() bool {
	return u.Role == RoleAgent
}

// IsCustomer reports whether the user holds the customer role.
func (u *User) IsCustomer() bool {
	return u.Role == RoleCustomer
}
