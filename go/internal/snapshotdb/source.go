// Package snapshotdb reads Prophecy snapshots straight from the upstream
// Postgres database. Tables follow the upstream schema: quoted PascalCase
// table names with camelCase columns.
package snapshotdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/prophecy/go/internal/models"
	"github.com/mcdev12/prophecy/go/internal/realtime"
	"github.com/mcdev12/prophecy/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// TxStarter is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxStarter = sqlutil.TxStarter

// Source implements realtime.SnapshotSource over Postgres.
type Source struct {
	db     TxStarter
	userID string
}

// NewSource creates a snapshot source that reports userID as the current
// identity.
func NewSource(db TxStarter, userID string) *Source {
	return &Source{db: db, userID: userID}
}

const (
	usersQuery = `
		SELECT id, username, "displayName", "avatarUrl", role::text, status::text, "createdAt"
		FROM "User"
		ORDER BY "createdAt"`

	roundsQuery = `
		SELECT id, title, "submissionDeadline", "ratingDeadline", "fulfillmentDate",
		       "resultsPublishedAt", "createdAt"
		FROM "Round"
		ORDER BY "createdAt"`

	propheciesQuery = `
		SELECT p.id, p.title, p.description, p."creatorId", p."roundId", p.fulfilled,
		       p."resolvedAt", avg(r.value)::float8, count(r.id)::int, p."createdAt"
		FROM "Prophecy" p
		LEFT JOIN "Rating" r ON r."prophecyId" = p.id
		GROUP BY p.id
		ORDER BY p."createdAt"`

	ratingsQuery = `
		SELECT id, value, "prophecyId", "userId", "createdAt"
		FROM "Rating"
		ORDER BY "createdAt"`

	userBadgesQuery = `
		SELECT ub.id, ub."userId", ub."badgeId", ub."earnedAt",
		       b.id, b.key, b.name, b.description, b.category
		FROM "UserBadge" ub
		JOIN "Badge" b ON b.id = ub."badgeId"
		ORDER BY ub."earnedAt"`
)

// FetchSnapshot reads every entity kind inside one repeatable-read,
// read-only transaction so the lists are mutually consistent.
func (s *Source) FetchSnapshot(ctx context.Context) (*realtime.Snapshot, error) {
	start := time.Now()

	snap := &realtime.Snapshot{}
	err := sqlutil.Snapshot(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if snap.Users, err = sqlutil.Collect(ctx, tx, usersQuery, scanUser); err != nil {
			return fmt.Errorf("read users: %w", err)
		}
		if snap.Rounds, err = sqlutil.Collect(ctx, tx, roundsQuery, scanRound); err != nil {
			return fmt.Errorf("read rounds: %w", err)
		}
		if snap.Prophecies, err = sqlutil.Collect(ctx, tx, propheciesQuery, scanProphecy); err != nil {
			return fmt.Errorf("read prophecies: %w", err)
		}
		if snap.Ratings, err = sqlutil.Collect(ctx, tx, ratingsQuery, scanRating); err != nil {
			return fmt.Errorf("read ratings: %w", err)
		}
		if snap.UserBadges, err = sqlutil.Collect(ctx, tx, userBadgesQuery, scanUserBadge); err != nil {
			return fmt.Errorf("read user badges: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot transaction: %w", err)
	}

	for i := range snap.Users {
		if snap.Users[i].ID == s.userID {
			self := snap.Users[i]
			snap.CurrentUser = &self
			break
		}
	}

	log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("users", len(snap.Users)).
		Int("prophecies", len(snap.Prophecies)).
		Msg("snapshot read from database")

	return snap, nil
}

func scanUser(row pgx.CollectableRow) (models.User, error) {
	var (
		u            models.User
		role, status string
	)
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &role, &status, &u.CreatedAt)
	u.Role = models.UserRole(role)
	u.Status = models.UserStatus(status)
	return u, err
}

func scanRound(row pgx.CollectableRow) (models.Round, error) {
	var r models.Round
	err := row.Scan(&r.ID, &r.Title, &r.SubmissionDeadline, &r.RatingDeadline, &r.FulfillmentDate,
		&r.ResultsPublishedAt, &r.CreatedAt)
	return r, err
}

func scanProphecy(row pgx.CollectableRow) (models.Prophecy, error) {
	var p models.Prophecy
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.RoundID, &p.Fulfilled,
		&p.ResolvedAt, &p.AverageRating, &p.RatingCount, &p.CreatedAt)
	return p, err
}

func scanRating(row pgx.CollectableRow) (models.Rating, error) {
	var r models.Rating
	err := row.Scan(&r.ID, &r.Value, &r.ProphecyID, &r.UserID, &r.CreatedAt)
	return r, err
}

func scanUserBadge(row pgx.CollectableRow) (models.UserBadge, error) {
	var (
		ub models.UserBadge
		b  models.Badge
	)
	err := row.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.EarnedAt,
		&b.ID, &b.Key, &b.Name, &b.Description, &b.Category)
	ub.Badge = &b
	return ub, err
}
