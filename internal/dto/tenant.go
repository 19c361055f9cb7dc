package dto

import "time"

// CreateTenantRequest onboards a new school installation.
type CreateTenantRequest struct {
	Name         string `json:"name" binding:"required"`
	Slug         string `json:"slug" binding:"required,lowercase"`
	CustomDomain string `json:"customDomain"`
	PackageTier  string `json:"packageTier" binding:"omitempty,oneof=basic standard premium"`
}

// ExtendSubscriptionRequest pushes a tenant's expiry forward and re-activates
// the subscription.
type ExtendSubscriptionRequest struct {
	ExpiresAt time.Time `json:"expiresAt" binding:"required"`
}

// ChangeTierRequest switches a tenant's licensing package.
type ChangeTierRequest struct {
	PackageTier string `json:"packageTier" binding:"required,oneof=basic standard premium"`
}
