package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrSnapshotPayload marks an explicit error descriptor returned by the
// snapshot endpoint, as opposed to a transport failure.
var ErrSnapshotPayload = errors.New("snapshot endpoint returned an error")

// SnapshotSource reads everything the current session is authorized to see
// in a single call.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// Loader fetches snapshots and installs them into a session's store.
type Loader struct {
	source  SnapshotSource
	session *Session
}

// NewLoader creates a loader for session
func NewLoader(source SnapshotSource, session *Session) *Loader {
	return &Loader{source: source, session: session}
}

// Load fetches and installs the snapshot unless the session is already
// ready, in which case the caches are left untouched. Failures are logged
// and leave readiness false; there is no retry here.
func (l *Loader) Load(ctx context.Context) error {
	if l.session.Ready() {
		log.Debug().Str("session_id", l.session.ID).Msg("session ready, skipping snapshot")
		return nil
	}
	return l.Reload(ctx)
}

// Reload fetches and installs the snapshot regardless of readiness.
func (l *Loader) Reload(ctx context.Context) error {
	snap, err := l.Fetch(ctx)
	if err != nil {
		return err
	}
	l.Install(snap)
	return nil
}

// Fetch issues the snapshot read without touching the store.
func (l *Loader) Fetch(ctx context.Context) (*Snapshot, error) {
	snap, err := l.source.FetchSnapshot(ctx)
	if err == nil && snap == nil {
		err = fmt.Errorf("%w: empty response", ErrSnapshotPayload)
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", l.session.ID).
			Msg("failed to load snapshot")
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return snap, nil
}

// Install replaces every cache with snap and then marks the session ready.
// Caches are complete before readiness is observable.
func (l *Loader) Install(snap *Snapshot) {
	l.session.store.Install(snap)
	l.session.markReady()

	log.Info().
		Str("session_id", l.session.ID).
		Int("users", len(snap.Users)).
		Int("rounds", len(snap.Rounds)).
		Int("prophecies", len(snap.Prophecies)).
		Int("ratings", len(snap.Ratings)).
		Int("user_badges", len(snap.UserBadges)).
		Msg("snapshot installed")
}
