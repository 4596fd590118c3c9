package main

import (
	"time"

	"github.com/mcdev12/prophecy/go/internal/models"
)

// Response shapes add the derived fields that readers would otherwise
// recompute from deadlines and nullable columns.

type userView struct {
	models.User
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

type roundView struct {
	models.Round
	Phase            models.RoundPhase `json:"phase"`
	ResultsPublished bool              `json:"resultsPublished"`
}

type prophecyView struct {
	models.Prophecy
	Resolved bool `json:"resolved"`
}

func newUserView(u *models.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{User: *u, Name: u.Name(), IsAdmin: u.IsAdmin()}
}

// present wraps an entity in its response shape, evaluated at now.
func present(e models.Entity, now time.Time) any {
	switch v := e.(type) {
	case models.User:
		return newUserView(&v)
	case models.Round:
		return roundView{Round: v, Phase: v.Phase(now), ResultsPublished: v.ResultsPublished()}
	case models.Prophecy:
		return prophecyView{Prophecy: v, Resolved: v.IsResolved()}
	default:
		return e
	}
}

func presentAll(entities []models.Entity, now time.Time) []any {
	out := make([]any, 0, len(entities))
	for _, e := range entities {
		out = append(out, present(e, now))
	}
	return out
}
