package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	// RoleSuperAdmin is the platform operator role; it is not bound to a
	// tenant and bypasses subscription gating entirely.
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RolePrincipal  UserRole = "PRINCIPAL"
	RoleAccountant UserRole = "ACCOUNTANT"
	RoleTeacher    UserRole = "TEACHER"
)

// User represents an application user stored in the users table.
// TenantID is nil only for platform superadmins.
type User struct {
	ID           string     `db:"id" json:"id"`
	TenantID     *string    `db:"tenant_id" json:"tenant_id,omitempty"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
