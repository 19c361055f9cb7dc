package models

import "time"

// PackageTier identifies the licensing package a tenant subscribed to.
type PackageTier string

const (
	TierBasic    PackageTier = "basic"
	TierStandard PackageTier = "standard"
	TierPremium  PackageTier = "premium"
)

// Rank orders tiers for feature gating. Unknown tiers rank lowest.
func (t PackageTier) Rank() int {
	switch t {
	case TierBasic:
		return 1
	case TierStandard:
		return 2
	case TierPremium:
		return 3
	default:
		return 0
	}
}

// Tenant represents one isolated school installation. Tenants are deactivated
// on expiry, never deleted. CurrentSessionID/CurrentTermID are the per-tenant
// pointers to the active grading period.
type Tenant struct {
	ID                 string      `db:"id" json:"id"`
	Name               string      `db:"name" json:"name"`
	Slug               string      `db:"slug" json:"slug"`
	CustomDomain       *string     `db:"custom_domain" json:"custom_domain,omitempty"`
	PackageTier        PackageTier `db:"package_tier" json:"package_tier"`
	IsActivated        bool        `db:"is_activated" json:"is_activated"`
	SubscriptionActive bool        `db:"subscription_active" json:"subscription_active"`
	ExpiresAt          *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	CurrentSessionID   *string     `db:"current_session_id" json:"current_session_id,omitempty"`
	CurrentTermID      *string     `db:"current_term_id" json:"current_term_id,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// TenantFilter captures filtering criteria for the superadmin tenant list.
type TenantFilter struct {
	Search   string
	Tier     PackageTier
	Active   *bool
	Page     int
	PageSize int
}
