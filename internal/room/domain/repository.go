package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
	"gorm.io/gorm"
)

type SearchFilter struct {
	Keyword     string
	IsAvailable *bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, room *Room) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	Search(ctx context.Context, db *gorm.DB, filter SearchFilter, page pagination.Pagination) ([]*Room, int64, error)
	Update(ctx context.Context, db *gorm.DB, room *Room) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountReferences(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	OwnerExists(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (bool, error)
	FindByContractID(ctx context.Context, db *gorm.DB, contractID snowflake.ID) (*Room, error)
}
