package models

import (
	"database/sql"
	"time"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleAgent   UserRole = "agent"
	UserRoleViewer  UserRole = "viewer"
)

// User is a dashboard operator account.
type User struct {
	ID             string         `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	Username       string         `db:"username" json:"username"`
	FullName       sql.NullString `db:"full_name" json:"full_name,omitempty"`
	HashedPassword string         `db:"hashed_password" json:"-"`
	Role           UserRole       `db:"role" json:"role"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	IsSuperuser    bool           `db:"is_superuser" json:"is_superuser"`
	LastLogin      sql.NullTime   `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the full name when set, otherwise the username.
func (u *User) DisplayName() string {
	if u.FullName.Valid && u.FullName.String != "" {
		return u.FullName.String
	}
	return u.Username
}
