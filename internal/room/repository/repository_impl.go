package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/room/domain"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, room *domain.Room) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(room).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	return r.first(db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *repo) FindByContractID(ctx context.Context, db *gorm.DB, contractID snowflake.ID) (*domain.Room, error) {
	return r.first(db.WithContext(ctx).
		Where("id = (SELECT room_id FROM contracts WHERE id = ?)", contractID))
}

// Search matches the keyword as a substring of title or address. Case
// sensitivity follows the column collation.
func (r *repo) Search(ctx context.Context, db *gorm.DB, filter domain.SearchFilter, page pagination.Pagination) ([]*domain.Room, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Room{})

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		pattern := "%" + escapeLike(keyword) + "%"
		stmt = stmt.Where("(title LIKE ? ESCAPE '!' OR address LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if filter.IsAvailable != nil {
		stmt = stmt.Where("is_available = ?", *filter.IsAvailable)
	}
	if filter.MinPrice != nil {
		stmt = stmt.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		stmt = stmt.Where("price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := stmt.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []*domain.Room
	err := stmt.
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, room *domain.Room) error {
	return db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", room.ID).
		Updates(map[string]any{
			"title":        room.Title,
			"description":  room.Description,
			"address":      room.Address,
			"price":        room.Price,
			"area":         room.Area,
			"is_available": room.IsAvailable,
			"owner_id":     room.OwnerID,
			"updated_at":   room.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Room{}).Error
}

// CountReferences counts contracts and invoices pointing at the room.
func (r *repo) CountReferences(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var row struct {
		Contracts int64
		Invoices  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(*) FROM contracts WHERE room_id = ?) AS contracts,
			(SELECT COUNT(*) FROM invoices WHERE room_id = ?) AS invoices`,
		id,
		id,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Contracts + row.Invoices, nil
}

func (r *repo) OwnerExists(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table("users").Where("id = ?", ownerID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) first(stmt *gorm.DB) (*domain.Room, error) {
	var room domain.Room
	err := stmt.First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return replacer.Replace(value)
}
