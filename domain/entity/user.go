package entity

import (
	"time"
)

// UserStatus is the lifecycle status of an account.
type UserStatus string

const (
	StatusPendingVerification UserStatus = "PENDING_VERIFICATION"
	StatusActive              UserStatus = "ACTIVE"
	StatusSuspended           UserStatus = "SUSPENDED"
	StatusInactive            UserStatus = "INACTIVE"
	StatusBlocked             UserStatus = "BLOCKED"
)

// User is the directory entry owned by the user service. The password hash
// never serializes; default read paths return the Public view and the hash is
// reachable only through the credential lookup path.
type User struct {
	ID                  string     `json:"id"`
	Email               *string    `json:"email"`
	Username            *string    `json:"username"`
	PasswordHash        string     `json:"-"`
	EmailVerified       bool       `json:"email_verified"`
	IsAdmin             bool       `json:"is_admin"`
	IsModerator         bool       `json:"is_moderator"`
	TwoFactorEnabled    bool       `json:"two_factor_enabled"`
	Status              UserStatus `json:"status"`
	LoginFailedAttempts int        `json:"-"`
	LoginFailedLastAt   *time.Time `json:"-"`
	AccountLockedUntil  *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	DeletedAt           *time.Time `json:"-"`
}

func NewUser(id string, email, username *string, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Status:       StatusPendingVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// PublicUser is the redacted account view returned by every default read.
type PublicUser struct {
	ID               string     `json:"id"`
	Email            *string    `json:"email"`
	Username         *string    `json:"username"`
	EmailVerified    bool       `json:"email_verified"`
	IsAdmin          bool       `json:"is_admin"`
	IsModerator      bool       `json:"is_moderator"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	Status           UserStatus `json:"status"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Public returns the redacted view of the account.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		EmailVerified:    u.EmailVerified,
		IsAdmin:          u.IsAdmin,
		IsModerator:      u.IsModerator,
		TwoFactorEnabled: u.TwoFactorEnabled,
		Status:           u.Status,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// Credential is an account plus its secret hash. Only the credential reader
// produces it; everything else in the system works with User or PublicUser.
type Credential struct {
	User         *PublicUser `json:"user"`
	PasswordHash string      `json:"password_hash"`
}

// IsLockedAt reports whether the account lock is in effect at the given time.
func (u *User) IsLockedAt(now time.Time) bool {
	return u.AccountLockedUntil != nil && u.AccountLockedUntil.After(now)
}
