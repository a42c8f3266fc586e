// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/identity"
)

// User represents a system user account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	FullName     string       `gorm:"column:full_name;type:varchar(200);not null" json:"full_name"`
	Role         string       `gorm:"column:role;type:varchar(16);not null" json:"role"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null" json:"-"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    *time.Time   `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at,omitempty"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) Caller() identity.CallerIdentity {
	role, _ := identity.ParseRole(u.Role)
	return identity.CallerIdentity{UserID: u.ID, Email: u.Email, Role: role}
}

// Profile is the public shape of an authenticated user.
type Profile struct {
	Token    string        `json:"token,omitempty"`
	UserID   snowflake.ID  `json:"user_id"`
	Email    string        `json:"email"`
	FullName string        `json:"full_name"`
	Role     string        `json:"role"`
	TenantID *snowflake.ID `json:"tenant_id,omitempty"`
}
