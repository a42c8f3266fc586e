package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	ExistsByEmail(ctx context.Context, db *gorm.DB, email string) (bool, error)
	UpdatePasswordHash(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string, updatedAt time.Time) error
}
