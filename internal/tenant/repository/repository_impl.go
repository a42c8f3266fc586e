package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/tenant/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(tenant).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tenant, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tenant, error) {
	return r.first(db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Tenant, error) {
	return r.first(db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Find(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *repo) ListContracts(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.ContractSummary, error) {
	var rows []domain.ContractSummary
	err := db.WithContext(ctx).Raw(
		`SELECT c.id, c.room_id, r.title AS room_title, c.monthly_rent, c.start_date,
		        c.end_date, c.status, c.terminated_at
		 FROM contracts c
		 JOIN rooms r ON r.id = c.room_id
		 WHERE c.tenant_id = ?
		 ORDER BY c.start_date DESC, c.id DESC`,
		tenantID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Tenant{}).Error
}

func (r *repo) first(stmt *gorm.DB) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := stmt.First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}
