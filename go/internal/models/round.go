package models

import "time"

// RoundPhase is derived from a round's deadlines.
type RoundPhase string

const (
	RoundPhaseSubmission RoundPhase = "SUBMISSION"
	RoundPhaseRating     RoundPhase = "RATING"
	RoundPhaseClosed     RoundPhase = "CLOSED"
)

// Round represents a time-boxed group of prophecies
type Round struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	SubmissionDeadline time.Time  `json:"submissionDeadline"`
	RatingDeadline     time.Time  `json:"ratingDeadline"`
	FulfillmentDate    time.Time  `json:"fulfillmentDate"`
	ResultsPublishedAt *time.Time `json:"resultsPublishedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func (r Round) EntityID() string { return r.ID }

// Phase returns which phase the round is in at now.
func (r Round) Phase(now time.Time) RoundPhase {
	switch {
	case now.Before(r.SubmissionDeadline):
		return RoundPhaseSubmission
	case now.Before(r.RatingDeadline):
		return RoundPhaseRating
	default:
		return RoundPhaseClosed
	}
}

// ResultsPublished reports whether the round's results are visible.
func (r Round) ResultsPublished() bool {
	return r.ResultsPublishedAt != nil
}
