package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Tenant, error)
	List(ctx context.Context, db *gorm.DB) ([]*Tenant, error)
	ListContracts(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]ContractSummary, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
