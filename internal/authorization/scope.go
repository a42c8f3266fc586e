package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/identity"
	"gorm.io/gorm"
)

const contractStatusActive = "ACTIVE"

type scope struct {
	db *gorm.DB
}

func NewScope(db *gorm.DB) Scope {
	return &scope{db: db}
}

// ActiveContractIDs lists the active contracts held under the caller's email.
// Admin and Owner callers are unrestricted.
func (s *scope) ActiveContractIDs(ctx context.Context, caller identity.CallerIdentity, roomID *snowflake.ID) (ContractFilter, error) {
	if caller.IsAnonymous() {
		return ContractFilter{}, ErrUnauthorized
	}
	if !caller.Is(identity.RoleTenant) {
		return ContractFilter{Unrestricted: true}, nil
	}
	email := identity.NormalizeEmail(caller.Email)
	if email == "" {
		return ContractFilter{}, nil
	}

	stmt := s.db.WithContext(ctx).
		Table("contracts AS c").
		Joins("JOIN tenants AS t ON t.id = c.tenant_id").
		Where("c.status = ? AND t.email = ?", contractStatusActive, email)
	if roomID != nil {
		stmt = stmt.Where("c.room_id = ?", *roomID)
	}

	var ids []snowflake.ID
	if err := stmt.Order("c.start_date desc, c.id desc").Pluck("c.id", &ids).Error; err != nil {
		return ContractFilter{}, err
	}
	return ContractFilter{IDs: ids}, nil
}

func (s *scope) CanReadRoom(ctx context.Context, caller identity.CallerIdentity, roomID snowflake.ID) error {
	if !caller.Is(identity.RoleTenant) {
		return nil
	}
	filter, err := s.ActiveContractIDs(ctx, caller, &roomID)
	if err != nil {
		return err
	}
	if filter.Empty() {
		return ErrForbidden
	}
	return nil
}

// CanReadContract allows a tenant to read any contract, active or not,
// whose tenant profile carries the caller's email.
func (s *scope) CanReadContract(ctx context.Context, caller identity.CallerIdentity, contractID snowflake.ID) error {
	if !caller.Is(identity.RoleTenant) {
		return nil
	}
	var emails []string
	err := s.db.WithContext(ctx).
		Table("contracts AS c").
		Joins("JOIN tenants AS t ON t.id = c.tenant_id").
		Where("c.id = ? AND t.email IS NOT NULL", contractID).
		Pluck("t.email", &emails).Error
	if err != nil {
		return err
	}
	return ownsOne(caller, emails)
}

func (s *scope) CanReadInvoice(ctx context.Context, caller identity.CallerIdentity, invoiceID snowflake.ID) error {
	if !caller.Is(identity.RoleTenant) {
		return nil
	}
	var emails []string
	err := s.db.WithContext(ctx).
		Table("invoices AS i").
		Joins("JOIN contracts AS c ON c.id = i.contract_id").
		Joins("JOIN tenants AS t ON t.id = c.tenant_id").
		Where("i.id = ? AND t.email IS NOT NULL", invoiceID).
		Pluck("t.email", &emails).Error
	if err != nil {
		return err
	}
	return ownsOne(caller, emails)
}

func ownsOne(caller identity.CallerIdentity, emails []string) error {
	for _, email := range emails {
		if caller.OwnsEmail(email) {
			return nil
		}
	}
	return ErrForbidden
}
