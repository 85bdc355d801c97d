package domain

import "time"

// Role enumerates account roles. Customers submit tickets; Agents work
// them; Managers and Admins additionally control assignment and users.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// ValidRole reports whether r is a known role value.
func ValidRole(r Role) bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to a support operator.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleManager || r == RoleAdmin
}

// CanAssign reports whether the role may set a ticket assignee.
func (r Role) CanAssign() bool {
	return r == RoleManager || r == RoleAdmin
}

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// User is the domain model for every account, customer and staff alike.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
