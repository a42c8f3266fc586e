package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	// FindWithRelations loads the contract together with its tenant and room.
	FindWithRelations(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	FindActiveForUpdate(ctx context.Context, db *gorm.DB, roomID, tenantID snowflake.ID) (*Contract, error)
	ListActiveByTenantForUpdate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*Contract, error)
	ListRoomTenants(ctx context.Context, db *gorm.DB, roomID snowflake.ID) ([]RoomTenant, error)
	CountInvoicesByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	Terminate(ctx context.Context, db *gorm.DB, contract *Contract) error
	DeleteByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) error
}
