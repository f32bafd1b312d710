// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleEntrepreneur Role = "entrepreneur"
	RoleMentor       Role = "mentor"
	RoleInvestor     Role = "investor"
	RoleTalent       Role = "talent"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEntrepreneur, RoleMentor, RoleInvestor, RoleTalent:
		return true
	}
	return false
}

// User represents a marketplace account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email        string       `gorm:"column:email;type:varchar(320);not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null" json:"-"`
	FirstName    string       `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName     string       `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	Role         Role         `gorm:"column:role;type:varchar(32);not null" json:"role"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:varchar(64);not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:varchar(64)"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// SessionView is returned to clients without exposing token values.
type SessionView struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSessionView(user *User, expiresAt time.Time) *SessionView {
	return &SessionView{
		UserID:    user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}
}
