// models/user.go
package models

import "time"

// Roles a platform account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// User represents a platform account.
type User struct {
	ID                string    `bson:"id" json:"id"`
	Username          string    `bson:"username" json:"username"`
	Email             string    `bson:"email" json:"email"`
	Password          string    `bson:"-" json:"password,omitempty"`
	PasswordHash      string    `bson:"passwordHash" json:"-"`
	Role              string    `bson:"role" json:"role"`
	IsAdmin           bool      `bson:"isAdmin" json:"isAdmin"`
	IsBanned          bool      `bson:"isBanned" json:"isBanned"`
	BanReason         string    `bson:"banReason,omitempty" json:"banReason,omitempty"`
	DeviceFingerprint string    `bson:"deviceFingerprint,omitempty" json:"-"`
	DeviceCookie      string    `bson:"deviceCookie,omitempty" json:"-"`
	TokenHash         string    `bson:"tokenHash,omitempty" json:"-"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasAdminRights reports whether the account may moderate and administer.
func (u *User) HasAdminRights() bool {
	return u.IsAdmin || u.Role == RoleAdmin || u.Role == RoleOwner
}

// UserRegistrationRequest is the signup payload.
type UserRegistrationRequest struct {
	Username          string `json:"username" binding:"required"`
	Email             string `json:"email" binding:"required"`
	Password          string `json:"password" binding:"required"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

// UserLoginRequest is the signin payload.
type UserLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
