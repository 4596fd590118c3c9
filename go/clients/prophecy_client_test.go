package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/prophecy/go/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProphecyClient_FetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, InitialDataEndpoint, r.URL.Path)
		if cookie, err := r.Cookie(SessionCookie); assert.NoError(t, err) {
			assert.Equal(t, "tok", cookie.Value)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{
			"users":[{"id":"u1","username":"cassandra","role":"ADMIN","status":"APPROVED"}],
			"rounds":[{"id":"r1","title":"Spring"}],
			"prophecies":[{"id":"p1","title":"Rain","creatorId":"u1","roundId":"r1"}],
			"ratings":[{"id":"ra1","value":7,"prophecyId":"p1","userId":"u1"}],
			"userBadges":[{"id":"ub1","userId":"u1","badgeId":"b1"}],
			"currentUser":{"id":"u1","username":"cassandra"}}}`))
	}))
	defer srv.Close()

	snap, err := NewProphecyClient(srv.URL+"/", "tok").FetchSnapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Users, 1)
	assert.True(t, snap.Users[0].IsAdmin())
	require.Len(t, snap.Ratings, 1)
	assert.Equal(t, 7, snap.Ratings[0].Value)
	require.Len(t, snap.UserBadges, 1)
	require.NotNil(t, snap.CurrentUser)
	assert.Equal(t, "u1", snap.CurrentUser.ID)
}

func TestProphecyClient_ErrorDescriptor(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"ok status", http.StatusOK, `{"success":false,"error":"Database unavailable"}`},
		{"error status", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"missing data", http.StatusOK, `{"success":true}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewProphecyClient(srv.URL, "").FetchSnapshot(context.Background())
			assert.ErrorIs(t, err, realtime.ErrSnapshotPayload)
		})
	}
}

func TestProphecyClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream gone"))
	}))
	defer srv.Close()

	_, err := NewProphecyClient(srv.URL, "").FetchSnapshot(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.NotErrorIs(t, err, realtime.ErrSnapshotPayload)
}
