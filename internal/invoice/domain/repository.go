package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows an invoice listing. When Restricted is set only
// invoices of ContractIDs match, so an empty slice matches nothing.
type ListFilter struct {
	RoomID      *snowflake.ID
	Restricted  bool
	ContractIDs []snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	MarkPaid(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	MarkOverdue(ctx context.Context, db *gorm.DB, dueBefore time.Time) (int64, error)
}
