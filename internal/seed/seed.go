package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
	"github.com/smallbiznis/roomlease/internal/auth/password"
	"github.com/smallbiznis/roomlease/internal/clock"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	"github.com/smallbiznis/roomlease/internal/identity"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DemoAdminEmail  = "admin@demo.com"
	DemoOwnerEmail  = "owner@demo.com"
	DemoTenantEmail = "tenant@demo.com"
	DemoPassword    = "123456"

	demoRoomTitle = "Central studio"
)

var demoRoomPrice = decimal.NewFromInt(3500000)

// EnsureDemoData seeds demo accounts, a room and an active lease. Rows that
// already exist are left alone, so it is safe on every start.
func EnsureDemoData(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if genID == nil {
		return errors.New("seed id generator is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("seed")

	ctx := context.Background()
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureUserTx(ctx, tx, genID, now, DemoAdminEmail, "Administrator", identity.RoleAdmin); err != nil {
			return err
		}
		owner, err := ensureUserTx(ctx, tx, genID, now, DemoOwnerEmail, "Owner Demo", identity.RoleOwner)
		if err != nil {
			return err
		}
		tenantUser, err := ensureUserTx(ctx, tx, genID, now, DemoTenantEmail, "Tenant Demo", identity.RoleTenant)
		if err != nil {
			return err
		}

		room, err := ensureRoomTx(ctx, tx, genID, now, owner.ID)
		if err != nil {
			return err
		}
		tenant, err := ensureTenantTx(ctx, tx, genID, now, tenantUser)
		if err != nil {
			return err
		}
		created, err := ensureContractTx(ctx, tx, genID, now, tenant.ID, room)
		if err != nil {
			return err
		}
		if created {
			log.Info("demo data seeded",
				zap.String("owner_email", owner.Email),
				zap.String("tenant_email", tenantUser.Email),
				zap.String("room_id", room.ID.String()),
			)
		}
		return nil
	})
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, now time.Time, email, fullName string, role identity.Role) (*authdomain.User, error) {
	var user authdomain.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(DemoPassword)
	if err != nil {
		return nil, err
	}
	user = authdomain.User{
		ID:           genID.Generate(),
		Email:        email,
		FullName:     fullName,
		Role:         role.String(),
		PasswordHash: hashed,
		CreatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureRoomTx(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, now time.Time, ownerID snowflake.ID) (*roomdomain.Room, error) {
	var room roomdomain.Room
	err := tx.WithContext(ctx).
		Where("owner_id = ? AND title = ?", ownerID, demoRoomTitle).
		First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	description := "Near the market, good security"
	room = roomdomain.Room{
		ID:          genID.Generate(),
		Title:       demoRoomTitle,
		Description: &description,
		Address:     "123 Nguyen Trai, District 1, Ho Chi Minh City",
		Price:       demoRoomPrice,
		Area:        18,
		IsAvailable: true,
		OwnerID:     ownerID,
		CreatedAt:   now,
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func ensureTenantTx(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, now time.Time, user *authdomain.User) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := tx.WithContext(ctx).Where("user_id = ?", user.ID).First(&tenant).Error
	if err == nil {
		return &tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := user.Email
	address := "456 Le Loi, District 1, Ho Chi Minh City"
	tenant = tenantdomain.Tenant{
		ID:        genID.Generate(),
		UserID:    &user.ID,
		FullName:  user.FullName,
		Phone:     "+84 912345678",
		Email:     &email,
		Address:   &address,
		CreatedAt: now,
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ensureContractTx opens the demo lease a week back unless the tenant
// already holds one for the room.
func ensureContractTx(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, now time.Time, tenantID snowflake.ID, room *roomdomain.Room) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&contractdomain.Contract{}).
		Where("tenant_id = ? AND room_id = ?", tenantID, room.ID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	contract := contractdomain.Contract{
		ID:          genID.Generate(),
		TenantID:    tenantID,
		RoomID:      room.ID,
		MonthlyRent: room.Price,
		StartDate:   clock.DateOnly(now).AddDate(0, 0, -7),
		Status:      contractdomain.ContractStatusActive,
		CreatedAt:   now,
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&contract).Error; err != nil {
		return false, err
	}
	return true, nil
}
