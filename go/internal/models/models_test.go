package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundPhase(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	round := Round{
		SubmissionDeadline: base,
		RatingDeadline:     base.Add(7 * 24 * time.Hour),
		FulfillmentDate:    base.Add(30 * 24 * time.Hour),
	}

	tests := []struct {
		name string
		now  time.Time
		want RoundPhase
	}{
		{"before submission deadline", base.Add(-time.Second), RoundPhaseSubmission},
		{"at submission deadline", base, RoundPhaseRating},
		{"during rating", base.Add(24 * time.Hour), RoundPhaseRating},
		{"at rating deadline", round.RatingDeadline, RoundPhaseClosed},
		{"after fulfillment", round.FulfillmentDate.Add(time.Hour), RoundPhaseClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, round.Phase(tt.now))
		})
	}
}

func TestRoundResultsPublished(t *testing.T) {
	published := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, Round{}.ResultsPublished())
	assert.True(t, Round{ResultsPublishedAt: &published}.ResultsPublished())
}

func TestProphecyIsResolved(t *testing.T) {
	no := false

	assert.False(t, Prophecy{}.IsResolved())
	assert.True(t, Prophecy{Fulfilled: &no}.IsResolved())
}

func TestUserName(t *testing.T) {
	display := "Cassandra"
	empty := ""

	assert.Equal(t, "cassandra", User{Username: "cassandra"}.Name())
	assert.Equal(t, "cassandra", User{Username: "cassandra", DisplayName: &empty}.Name())
	assert.Equal(t, "Cassandra", User{Username: "cassandra", DisplayName: &display}.Name())
	assert.True(t, User{Role: UserRoleAdmin}.IsAdmin())
	assert.False(t, User{Role: UserRoleUser}.IsAdmin())
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"users": KindUser, "round": KindRound, "prophecies": KindProphecy,
		"ratings": KindRating, "userBadges": KindBadge,
	} {
		got, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseKind("widgets")
	assert.False(t, ok)
}
