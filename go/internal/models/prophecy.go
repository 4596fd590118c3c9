package models

import "time"

// Prophecy represents a prediction submitted to a round
type Prophecy struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	CreatorID     string     `json:"creatorId"`
	RoundID       string     `json:"roundId"`
	Fulfilled     *bool      `json:"fulfilled,omitempty"` // nil until resolved
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
	AverageRating *float64   `json:"averageRating,omitempty"`
	RatingCount   int        `json:"ratingCount"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (p Prophecy) EntityID() string { return p.ID }

// IsResolved reports whether an admin has decided the prophecy.
func (p Prophecy) IsResolved() bool {
	return p.Fulfilled != nil
}
