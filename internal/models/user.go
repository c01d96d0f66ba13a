package models

import "time"

// SupportedLanguages lists the interface languages a user may pick
var SupportedLanguages = []string{"ru", "en", "uk"}

// DefaultLanguage is assigned when signup omits lang
const DefaultLanguage = "ru"

// User is an account in the local auth system
type User struct {
	ID               string       `bson:"_id" json:"id"`
	Email            string       `bson:"email" json:"email"`
	PasswordHash     string       `bson:"passwordHash" json:"-"`
	Lang             string       `bson:"lang" json:"lang"`
	SubscriptionTier string       `bson:"subscriptionTier" json:"subscriptionTier"`
	Settings         UserSettings `bson:"settings" json:"settings"`
	CreatedAt        time.Time    `bson:"createdAt" json:"createdAt"`
}

// UserSettings holds planning preferences. Nil fields are unset.
type UserSettings struct {
	Weekends           *bool    `bson:"weekends,omitempty" json:"weekends,omitempty"`
	DefaultDailyHours  *float64 `bson:"defaultDailyHours,omitempty" json:"defaultDailyHours,omitempty"`
	NotifyTime         *string  `bson:"notifyTime,omitempty" json:"notifyTime,omitempty"`
	DailyTimeLimitMins *int     `bson:"dailyTimeLimitMins,omitempty" json:"dailyTimeLimitMins,omitempty"`
}

// Merge overlays the set fields of other onto s
func (s UserSettings) Merge(other UserSettings) UserSettings {
	if other.Weekends != nil {
		s.Weekends = other.Weekends
	}
	if other.DefaultDailyHours != nil {
		s.DefaultDailyHours = other.DefaultDailyHours
	}
	if other.NotifyTime != nil {
		s.NotifyTime = other.NotifyTime
	}
	if other.DailyTimeLimitMins != nil {
		s.DailyTimeLimitMins = other.DailyTimeLimitMins
	}
	return s
}

// SkipsWeekends reports whether the user opted out of weekend tasks
func (s UserSettings) SkipsWeekends() bool {
	return s.Weekends != nil && !*s.Weekends
}

// DailyLimitMinutes returns the configured daily time budget, defaulting to 60
func (s UserSettings) DailyLimitMinutes() int {
	if s.DailyTimeLimitMins != nil && *s.DailyTimeLimitMins > 0 {
		return *s.DailyTimeLimitMins
	}
	return 60
}

// UserProfile is the public view of a user
type UserProfile struct {
	ID               string       `json:"id"`
	Email            string       `json:"email"`
	Lang             string       `json:"lang"`
	SubscriptionTier string       `json:"subscriptionTier"`
	Settings         UserSettings `json:"settings,omitempty"`
}

// Profile returns the public view of u
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:               u.ID,
		Email:            u.Email,
		Lang:             u.Lang,
		SubscriptionTier: u.SubscriptionTier,
		Settings:         u.Settings,
	}
}
