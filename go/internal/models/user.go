package models

import "time"

// UserRole defines what a user may do in the admin surface.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// UserStatus defines whether a user may take part.
type UserStatus string

const (
	UserStatusPending   UserStatus = "PENDING"
	UserStatusApproved  UserStatus = "APPROVED"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User represents a user in the system
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName *string    `json:"displayName,omitempty"`
	AvatarURL   *string    `json:"avatarUrl,omitempty"`
	Role        UserRole   `json:"role"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (u User) EntityID() string { return u.ID }

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
