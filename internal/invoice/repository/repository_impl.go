package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.first(db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	if filter.Restricted && len(filter.ContractIDs) == 0 {
		return []*domain.Invoice{}, nil
	}

	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.RoomID != nil {
		stmt = stmt.Where("room_id = ?", *filter.RoomID)
	}
	if filter.Restricted {
		stmt = stmt.Where("contract_id IN ?", filter.ContractIDs)
	}

	var invoices []*domain.Invoice
	err := stmt.Order("issue_date desc, id desc").Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"status":      invoice.Status,
			"paid_amount": invoice.PaidAmount,
			"paid_date":   invoice.PaidDate,
			"notes":       invoice.Notes,
		}).Error
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, dueBefore time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("status = ? AND due_date < ?", domain.InvoiceStatusPending, dueBefore).
		Update("status", domain.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}

func (r *repo) first(stmt *gorm.DB) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := stmt.First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
