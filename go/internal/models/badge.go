package models

import "time"

// Badge is the definition of an award
type Badge struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    *string `json:"category,omitempty"`
}

// UserBadge joins a badge to the user who earned it. Badge events carry
// this shape instead of a flat entity.
type UserBadge struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	BadgeID  string    `json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`
	Badge    *Badge    `json:"badge,omitempty"`
}

func (b UserBadge) EntityID() string { return b.ID }
