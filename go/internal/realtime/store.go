package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mcdev12/prophecy/go/internal/models"
)

// Snapshot is one consistent read of everything the session may see.
type Snapshot struct {
	Users       []models.User      `json:"users"`
	Rounds      []models.Round     `json:"rounds"`
	Prophecies  []models.Prophecy  `json:"prophecies"`
	Ratings     []models.Rating    `json:"ratings"`
	UserBadges  []models.UserBadge `json:"userBadges"`
	CurrentUser *models.User       `json:"currentUser,omitempty"`
}

// Store holds one cache per entity kind plus the session's own identity.
type Store struct {
	users      *Cache[models.User]
	rounds     *Cache[models.Round]
	prophecies *Cache[models.Prophecy]
	ratings    *Cache[models.Rating]
	badges     *Cache[models.UserBadge]

	selfMu sync.RWMutex
	self   *models.User
}

// NewStore creates a store with empty caches
func NewStore() *Store {
	return &Store{
		users:      NewCache[models.User](),
		rounds:     NewCache[models.Round](),
		prophecies: NewCache[models.Prophecy](),
		ratings:    NewCache[models.Rating](),
		badges:     NewCache[models.UserBadge](),
	}
}

func (s *Store) Users() CacheReader[models.User]           { return s.users }
func (s *Store) Rounds() CacheReader[models.Round]         { return s.rounds }
func (s *Store) Prophecies() CacheReader[models.Prophecy]  { return s.prophecies }
func (s *Store) Ratings() CacheReader[models.Rating]       { return s.ratings }
func (s *Store) UserBadges() CacheReader[models.UserBadge] { return s.badges }

// Self returns the identity the snapshot was read for, if known.
func (s *Store) Self() *models.User {
	s.selfMu.RLock()
	defer s.selfMu.RUnlock()
	return s.self
}

// BadgesOf lists the badge awards owned by userID.
func (s *Store) BadgesOf(userID string) []models.UserBadge {
	var out []models.UserBadge
	for _, b := range s.badges.All() {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out
}

// Counts returns the number of cached entities per kind.
func (s *Store) Counts() map[models.Kind]int {
	return map[models.Kind]int{
		models.KindUser:     s.users.Len(),
		models.KindRound:    s.rounds.Len(),
		models.KindProphecy: s.prophecies.Len(),
		models.KindRating:   s.ratings.Len(),
		models.KindBadge:    s.badges.Len(),
	}
}

// Install replaces every cache with the lists from snap, one kind at a time.
func (s *Store) Install(snap *Snapshot) {
	s.users.Replace(snap.Users)
	s.rounds.Replace(snap.Rounds)
	s.prophecies.Replace(snap.Prophecies)
	s.ratings.Replace(snap.Ratings)
	s.badges.Replace(snap.UserBadges)

	s.selfMu.Lock()
	s.self = snap.CurrentUser
	s.selfMu.Unlock()
}

// Session is the state shared by every syncer lifetime for one identity.
// Readiness flips false to true once and is never reset.
type Session struct {
	ID    string
	store *Store
	ready atomic.Bool
}

// NewSession creates a session with an empty store
func NewSession() *Session {
	return &Session{
		ID:    uuid.New().String(),
		store: NewStore(),
	}
}

func (s *Session) Store() *Store { return s.store }

// Ready reports whether the snapshot has been installed.
func (s *Session) Ready() bool { return s.ready.Load() }

func (s *Session) markReady() { s.ready.Store(true) }

// List returns every cached entity of kind.
func (s *Store) List(kind models.Kind) ([]models.Entity, bool) {
	switch kind {
	case models.KindUser:
		return entities(s.users), true
	case models.KindRound:
		return entities(s.rounds), true
	case models.KindProphecy:
		return entities(s.prophecies), true
	case models.KindRating:
		return entities(s.ratings), true
	case models.KindBadge:
		return entities(s.badges), true
	}
	return nil, false
}

// Lookup returns one cached entity of kind by id.
func (s *Store) Lookup(kind models.Kind, id string) (models.Entity, bool) {
	switch kind {
	case models.KindUser:
		return lookup(s.users, id)
	case models.KindRound:
		return lookup(s.rounds, id)
	case models.KindProphecy:
		return lookup(s.prophecies, id)
	case models.KindRating:
		return lookup(s.ratings, id)
	case models.KindBadge:
		return lookup(s.badges, id)
	}
	return nil, false
}

func entities[T models.Entity](c *Cache[T]) []models.Entity {
	all := c.All()
	out := make([]models.Entity, len(all))
	for i, v := range all {
		out[i] = v
	}
	return out
}

func lookup[T models.Entity](c *Cache[T], id string) (models.Entity, bool) {
	v, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	return v, true
}
