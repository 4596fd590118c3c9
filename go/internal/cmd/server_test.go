package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prophecy/go/internal/models"
	"github.com/mcdev12/prophecy/go/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

type snapshotFunc func(ctx context.Context) (*realtime.Snapshot, error)

func (f snapshotFunc) FetchSnapshot(ctx context.Context) (*realtime.Snapshot, error) {
	return f(ctx)
}

type stubView struct {
	session *realtime.Session
	status  realtime.ConnectionStatus
	state   realtime.State
	last    time.Time
}

func (v *stubView) Session() *realtime.Session        { return v.session }
func (v *stubView) Ready() bool                       { return v.session.Ready() }
func (v *stubView) Status() realtime.ConnectionStatus { return v.status }
func (v *stubView) State() realtime.State             { return v.state }
func (v *stubView) LastActivity() time.Time           { return v.last }

func newTestMux(t *testing.T, loaded bool) (*http.ServeMux, *stubView) {
	t.Helper()
	session := realtime.NewSession()
	if loaded {
		display := "Cassandra"
		self := models.User{ID: "u1", Username: "cassandra", DisplayName: &display, Role: models.UserRoleAdmin}
		fulfilled := true
		loader := realtime.NewLoader(snapshotFunc(func(context.Context) (*realtime.Snapshot, error) {
			return &realtime.Snapshot{
				Users: []models.User{self},
				Rounds: []models.Round{
					{ID: "r1", Title: "Spring"},
					{ID: "r2", Title: "Summer", SubmissionDeadline: testNow.Add(-time.Hour), RatingDeadline: testNow.Add(time.Hour)},
				},
				Prophecies: []models.Prophecy{
					{ID: "p1", Title: "Rain", CreatorID: "u1", RoundID: "r1", Fulfilled: &fulfilled},
					{ID: "p2", Title: "Sun", CreatorID: "u1", RoundID: "r2"},
				},
				CurrentUser: &self,
			}, nil
		}), session)
		require.NoError(t, loader.Load(context.Background()))
	}

	view := &stubView{
		session: session,
		status:  realtime.StatusConnected,
		state:   realtime.StateConnected,
		last:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	mux := http.NewServeMux()
	registerRoutes(mux, view, clockwork.NewFakeClockAt(testNow))
	return mux, view
}

func serve(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	mux, _ := newTestMux(t, false)

	rec := serve(mux, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatus(t *testing.T) {
	mux, view := newTestMux(t, true)

	rec := serve(mux, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, view.session.ID, resp.SessionID)
	assert.True(t, resp.Ready)
	assert.Equal(t, "connected", resp.Status)
	assert.Equal(t, "connected", resp.State)
	require.NotNil(t, resp.LastActivity)
	assert.True(t, view.last.Equal(*resp.LastActivity))
	require.NotNil(t, resp.CurrentUser)
	assert.Equal(t, "u1", resp.CurrentUser.ID)
	assert.Equal(t, "Cassandra", resp.CurrentUser.Name)
	assert.True(t, resp.CurrentUser.IsAdmin)
	assert.Equal(t, 2, resp.Counts[models.KindRound])
	assert.Equal(t, 1, resp.Counts[models.KindUser])
}

func TestStateList(t *testing.T) {
	mux, _ := newTestMux(t, true)

	rec := serve(mux, "/api/state/rounds")
	require.Equal(t, http.StatusOK, rec.Code)

	var rounds []models.Round
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rounds))
	titles := make([]string, 0, len(rounds))
	for _, r := range rounds {
		titles = append(titles, r.Title)
	}
	assert.ElementsMatch(t, []string{"Spring", "Summer"}, titles)
}

func TestStateLookup(t *testing.T) {
	mux, _ := newTestMux(t, true)

	rec := serve(mux, "/api/state/round/r2")
	require.Equal(t, http.StatusOK, rec.Code)

	var round roundView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &round))
	assert.Equal(t, "Summer", round.Title)
	assert.Equal(t, models.RoundPhaseRating, round.Phase)
	assert.False(t, round.ResultsPublished)

	assert.Equal(t, http.StatusNotFound, serve(mux, "/api/state/round/missing").Code)
	assert.Equal(t, http.StatusNotFound, serve(mux, "/api/state/widgets").Code)
}

func TestStateBeforeSnapshot(t *testing.T) {
	mux, _ := newTestMux(t, false)

	assert.Equal(t, http.StatusServiceUnavailable, serve(mux, "/api/state/rounds").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(mux, "/api/state/round/r1").Code)

	rec := serve(mux, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
}

func TestStateDerivedFields(t *testing.T) {
	mux, _ := newTestMux(t, true)

	rec := serve(mux, "/api/state/round/r1")
	require.Equal(t, http.StatusOK, rec.Code)
	var round roundView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &round))
	assert.Equal(t, models.RoundPhaseClosed, round.Phase)

	rec = serve(mux, "/api/state/prophecies")
	require.Equal(t, http.StatusOK, rec.Code)
	var prophecies []prophecyView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prophecies))
	resolved := map[string]bool{}
	for _, p := range prophecies {
		resolved[p.ID] = p.Resolved
	}
	assert.Equal(t, map[string]bool{"p1": true, "p2": false}, resolved)
}
