package rbac

import "time"

// Well-known role names seeded for the portal.
const (
	RoleEmployee   = "employee"
	RoleSupervisor = "supervisor"
	RolePayroll    = "payroll"
	RoleAdmin      = "admin"
)

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}
