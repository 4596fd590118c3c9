package models

// Kind names one entity collection mirrored by the client.
type Kind string

const (
	KindUser     Kind = "user"
	KindRound    Kind = "round"
	KindProphecy Kind = "prophecy"
	KindRating   Kind = "rating"
	KindBadge    Kind = "badge"
)

// Kinds lists every entity kind in snapshot install order.
var Kinds = []Kind{KindUser, KindRound, KindProphecy, KindRating, KindBadge}

// Entity is anything keyed by a server-assigned id.
type Entity interface {
	EntityID() string
}

// ParseKind maps a kind name to a Kind. The plural forms used by the REST
// API are accepted as well.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "user", "users":
		return KindUser, true
	case "round", "rounds":
		return KindRound, true
	case "prophecy", "prophecies":
		return KindProphecy, true
	case "rating", "ratings":
		return KindRating, true
	case "badge", "badges", "userBadges":
		return KindBadge, true
	}
	return "", false
}
