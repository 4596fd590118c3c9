package models

import "time"

const (
	MinRatingValue = -10
	MaxRatingValue = 10
)

// Rating represents one user's rating of a prophecy
type Rating struct {
	ID         string    `json:"id"`
	Value      int       `json:"value"`
	ProphecyID string    `json:"prophecyId"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (r Rating) EntityID() string { return r.ID }
