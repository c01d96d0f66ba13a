package models

// Subscription tiers
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// IsValidTier reports whether tier is a known subscription tier
func IsValidTier(tier string) bool {
	switch tier {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}
