package domain

import "time"

// StaffRole enumerates back-office roles.
type StaffRole string

const (
	StaffRoleAdmin      StaffRole = "ADMIN"
	StaffRoleManager    StaffRole = "MANAGER"
	StaffRoleTechnician StaffRole = "TECHNICIAN"
)

// StaffMember models a shop operator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
