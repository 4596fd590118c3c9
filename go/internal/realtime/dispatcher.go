package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/prophecy/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownEvent is returned for event types outside the catalogue.
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrMissingID is returned when a payload does not identify an entity.
	ErrMissingID = errors.New("payload has no entity id")
)

// applier mutates one cache from a raw payload.
type applier func(data []byte) error

// Dispatcher decodes inbound events and applies them to the store.
type Dispatcher struct {
	appliers map[EventType]applier
}

// NewDispatcher binds every route in Routes to the matching cache in store.
func NewDispatcher(store *Store) *Dispatcher {
	return newDispatcher(store, Routes)
}

// newDispatcher binds routes to store. A route whose kind or operation has
// no binding is logged and skipped, so its events count as unknown.
func newDispatcher(store *Store, routes map[EventType]Route) *Dispatcher {
	upserts := map[models.Kind]applier{
		models.KindUser:     upsertInto(store.users),
		models.KindRound:    upsertInto(store.rounds),
		models.KindProphecy: upsertInto(store.prophecies),
		models.KindRating:   upsertInto(store.ratings),
		models.KindBadge:    upsertInto(store.badges),
	}
	removes := map[models.Kind]applier{
		models.KindUser:     removeFrom(store.users),
		models.KindRound:    removeFrom(store.rounds),
		models.KindProphecy: removeFrom(store.prophecies),
		models.KindRating:   removeFrom(store.ratings),
		models.KindBadge:    revokeFrom(store.badges),
	}

	d := &Dispatcher{appliers: make(map[EventType]applier, len(routes))}
	for eventType, route := range routes {
		var apply applier
		switch route.Operation {
		case OperationUpsert:
			apply = upserts[route.Kind]
		case OperationRemove:
			apply = removes[route.Kind]
		}
		if apply == nil {
			log.Error().
				Str("event_type", string(eventType)).
				Str("kind", string(route.Kind)).
				Str("operation", string(route.Operation)).
				Msg("no cache binding for route, skipping")
			continue
		}
		d.appliers[eventType] = apply
	}
	return d
}

// Dispatch applies one event. Failures are logged and the event dropped;
// the returned error is informational only.
func (d *Dispatcher) Dispatch(eventType EventType, data []byte) error {
	if eventType == EventTypePing {
		return nil
	}

	apply, ok := d.appliers[eventType]
	if !ok {
		log.Warn().Str("event_type", string(eventType)).Msg("ignoring unknown event type")
		return fmt.Errorf("%w: %s", ErrUnknownEvent, eventType)
	}

	if err := apply(data); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(eventType)).
			Msg("dropping event")
		return fmt.Errorf("apply %s: %w", eventType, err)
	}

	log.Debug().Str("event_type", string(eventType)).Msg("event applied")
	return nil
}

// upsertInto replaces the cached entity wholesale. Arrival order wins; a
// late stale update stands until the next snapshot reload.
func upsertInto[T models.Entity](cache *Cache[T]) applier {
	return func(data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if v.EntityID() == "" {
			return ErrMissingID
		}
		cache.Upsert(v)
		return nil
	}
}

func removeFrom[T models.Entity](cache *Cache[T]) applier {
	return func(data []byte) error {
		var del deletion
		if err := json.Unmarshal(data, &del); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if del.ID == "" {
			return ErrMissingID
		}
		cache.Delete(del.ID)
		return nil
	}
}

func revokeFrom(cache *Cache[models.UserBadge]) applier {
	return func(data []byte) error {
		var del deletion
		if err := json.Unmarshal(data, &del); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if del.ID != "" {
			cache.Delete(del.ID)
			return nil
		}
		if del.UserID == "" || del.BadgeID == "" {
			return ErrMissingID
		}
		if award, ok := cache.find(func(b models.UserBadge) bool {
			return b.UserID == del.UserID && b.BadgeID == del.BadgeID
		}); ok {
			cache.Delete(award.ID)
		}
		return nil
	}
}
