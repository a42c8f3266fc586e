package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/contract/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(contract).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contract, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contract, error) {
	return r.first(db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *repo) FindWithRelations(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contract, error) {
	return r.first(db.WithContext(ctx).
		Preload("Tenant").
		Preload("Room").
		Where("id = ?", id))
}

func (r *repo) FindActiveForUpdate(ctx context.Context, db *gorm.DB, roomID, tenantID snowflake.ID) (*domain.Contract, error) {
	return r.first(db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ? AND tenant_id = ? AND status = ?", roomID, tenantID, domain.ContractStatusActive))
}

func (r *repo) ListActiveByTenantForUpdate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND status = ?", tenantID, domain.ContractStatusActive).
		Order("id asc").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repo) ListRoomTenants(ctx context.Context, db *gorm.DB, roomID snowflake.ID) ([]domain.RoomTenant, error) {
	var rows []domain.RoomTenant
	err := db.WithContext(ctx).Raw(
		`SELECT t.id, t.full_name, t.phone, t.email, t.address,
		        c.id AS contract_id, c.start_date, c.monthly_rent
		 FROM contracts c
		 JOIN tenants t ON t.id = c.tenant_id
		 WHERE c.room_id = ? AND c.status = ?
		 ORDER BY c.start_date DESC, c.id DESC`,
		roomID, domain.ContractStatusActive,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountInvoicesByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("invoices AS i").
		Joins("JOIN contracts AS c ON c.id = i.contract_id").
		Where("c.tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}

func (r *repo) Terminate(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("id = ?", contract.ID).
		Updates(map[string]any{
			"status":        contract.Status,
			"end_date":      contract.EndDate,
			"terminated_at": contract.TerminatedAt,
		}).Error
}

func (r *repo) DeleteByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) error {
	return db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&domain.Contract{}).Error
}

func (r *repo) first(stmt *gorm.DB) (*domain.Contract, error) {
	var contract domain.Contract
	err := stmt.First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}
