package services

import (
	"context"
	"errors"
	"log"
	"time"

	"listai/internal/models"

	"github.com/patrickmn/go-cache"
)

// TierLimits caps what a subscription tier may do. -1 means unlimited.
type TierLimits struct {
	MaxGoals       int  `json:"maxGoals"`
	TaskDiscussion bool `json:"taskDiscussion"`
}

var tierLimits = map[string]TierLimits{
	models.TierFree:       {MaxGoals: 1, TaskDiscussion: false},
	models.TierPro:        {MaxGoals: -1, TaskDiscussion: true},
	models.TierEnterprise: {MaxGoals: -1, TaskDiscussion: true},
}

// GetTierLimits returns the limits of a tier, falling back to free
func GetTierLimits(tier string) TierLimits {
	if limits, ok := tierLimits[tier]; ok {
		return limits
	}
	return tierLimits[models.TierFree]
}

// TierService manages subscription tier limits and lookups
type TierService struct {
	users UserStore
	cache *cache.Cache
}

// NewTierService creates a new tier service. users may be nil, in which case
// every lookup misses.
func NewTierService(users UserStore) *TierService {
	return &TierService{
		users: users,
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

type cachedTier struct {
	tier  string
	found bool
}

// LookupTier returns the stored tier of a user and whether the user exists
func (s *TierService) LookupTier(ctx context.Context, userID string) (string, bool) {
	if entry, ok := s.cache.Get(userID); ok {
		ct := entry.(cachedTier)
		return ct.tier, ct.found
	}

	ct := cachedTier{tier: models.TierFree}
	if s.users != nil && models.IsDurableID(userID) {
		user, err := s.users.GetByID(ctx, userID)
		switch {
		case err == nil:
			ct.found = true
			if models.IsValidTier(user.SubscriptionTier) {
				ct.tier = user.SubscriptionTier
			}
		case errors.Is(err, ErrRecordNotFound):
		default:
			// Do not cache lookup failures
			log.Printf("⚠️  [TIER] Failed to look up tier for user %s: %v", userID, err)
			return ct.tier, false
		}
	}

	s.cache.Set(userID, ct, cache.DefaultExpiration)
	return ct.tier, ct.found
}

// GetUserTier returns the subscription tier for a user, free when unknown
func (s *TierService) GetUserTier(ctx context.Context, userID string) string {
	tier, _ := s.LookupTier(ctx, userID)
	return tier
}

// IsFreeTier reports whether an existing user is on the free tier.
// Unknown users are not considered free so that gating never locks out
// callers the system cannot identify.
func (s *TierService) IsFreeTier(ctx context.Context, userID string) bool {
	tier, found := s.LookupTier(ctx, userID)
	return found && tier == models.TierFree
}

// GetLimits returns the limits for a user based on their tier
func (s *TierService) GetLimits(ctx context.Context, userID string) TierLimits {
	return GetTierLimits(s.GetUserTier(ctx, userID))
}

// CheckGoalLimit checks if user can create another goal
func (s *TierService) CheckGoalLimit(ctx context.Context, userID string, currentCount int64) bool {
	limits := s.GetLimits(ctx, userID)
	if limits.MaxGoals < 0 {
		return true // Unlimited
	}
	return currentCount < int64(limits.MaxGoals)
}

// InvalidateCache removes a user from the cache (call when tier changes)
func (s *TierService) InvalidateCache(userID string) {
	s.cache.Delete(userID)
	log.Printf("🔄 [TIER] Invalidated cache for user %s", userID)
}
