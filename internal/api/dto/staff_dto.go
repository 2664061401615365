package dto

import (
	"time"

	"github.com/spec-kit/repairdesk/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// StaffCreateRequest payload for admin-created staff accounts.
type StaffCreateRequest struct {
	Name     string           `json:"name" validate:"required,max=120"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required,min=8"`
	Role     domain.StaffRole `json:"role" validate:"required,oneof=ADMIN MANAGER TECHNICIAN"`
}

// StaffUpdateRequest payload.
type StaffUpdateRequest struct {
	Name   string           `json:"name" validate:"omitempty,max=120"`
	Role   domain.StaffRole `json:"role" validate:"omitempty,oneof=ADMIN MANAGER TECHNICIAN"`
	Active *bool            `json:"active"`
}

// StaffResponse is the wire shape of a staff member.
type StaffResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.StaffRole `json:"role"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"createdAt"`
}
