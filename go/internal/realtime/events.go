package realtime

import (
	"github.com/mcdev12/prophecy/go/internal/models"
)

// EventType is the name the push endpoint gives an event
type EventType string

const (
	EventTypeUserCreated     EventType = "user:created"
	EventTypeUserUpdated     EventType = "user:updated"
	EventTypeUserDeleted     EventType = "user:deleted"
	EventTypeRoundCreated    EventType = "round:created"
	EventTypeRoundUpdated    EventType = "round:updated"
	EventTypeRoundDeleted    EventType = "round:deleted"
	EventTypeProphecyCreated EventType = "prophecy:created"
	EventTypeProphecyUpdated EventType = "prophecy:updated"
	EventTypeProphecyDeleted EventType = "prophecy:deleted"
	EventTypeRatingCreated   EventType = "rating:created"
	EventTypeRatingUpdated   EventType = "rating:updated"
	EventTypeRatingDeleted   EventType = "rating:deleted"
	EventTypeBadgeAwarded    EventType = "badge:awarded"
	EventTypeBadgeRevoked    EventType = "badge:revoked"

	// EventTypePing is keep-alive traffic. It only re-arms the heartbeat.
	EventTypePing EventType = "ping"
)

// Operation is what an event does to its cache.
type Operation string

const (
	OperationUpsert Operation = "upsert"
	OperationRemove Operation = "remove"
)

// Route says which cache an event type targets and how.
type Route struct {
	Kind      models.Kind
	Operation Operation
}

// Routes is the event catalogue. Adding an entity kind means adding its
// rows here and a cache binding in NewDispatcher.
var Routes = map[EventType]Route{
	EventTypeUserCreated:     {models.KindUser, OperationUpsert},
	EventTypeUserUpdated:     {models.KindUser, OperationUpsert},
	EventTypeUserDeleted:     {models.KindUser, OperationRemove},
	EventTypeRoundCreated:    {models.KindRound, OperationUpsert},
	EventTypeRoundUpdated:    {models.KindRound, OperationUpsert},
	EventTypeRoundDeleted:    {models.KindRound, OperationRemove},
	EventTypeProphecyCreated: {models.KindProphecy, OperationUpsert},
	EventTypeProphecyUpdated: {models.KindProphecy, OperationUpsert},
	EventTypeProphecyDeleted: {models.KindProphecy, OperationRemove},
	EventTypeRatingCreated:   {models.KindRating, OperationUpsert},
	EventTypeRatingUpdated:   {models.KindRating, OperationUpsert},
	EventTypeRatingDeleted:   {models.KindRating, OperationRemove},
	EventTypeBadgeAwarded:    {models.KindBadge, OperationUpsert},
	EventTypeBadgeRevoked:    {models.KindBadge, OperationRemove},
}

// deletion is the payload of every remove event. Badge revocations may
// identify the award by owner and badge instead of id.
type deletion struct {
	ID      string `json:"id"`
	UserID  string `json:"userId,omitempty"`
	BadgeID string `json:"badgeId,omitempty"`
}
