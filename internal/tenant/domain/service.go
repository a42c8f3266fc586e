package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/roomlease/internal/identity"
)

type CreateTenantRequest struct {
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
}

// ContractSummary is a tenant's contract as listed on the tenant detail.
type ContractSummary struct {
	ID           snowflake.ID    `json:"id"`
	RoomID       snowflake.ID    `json:"room_id"`
	RoomTitle    string          `json:"room_title"`
	MonthlyRent  decimal.Decimal `json:"monthly_rent"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	Status       string          `json:"status"`
	TerminatedAt *time.Time      `json:"terminated_at,omitempty"`
}

type TenantDetail struct {
	Tenant
	Contracts []ContractSummary `json:"contracts"`
}

// Service manages tenant profiles. Deleting a tenant touches contracts and
// lives in the contract service.
type Service interface {
	Create(ctx context.Context, caller identity.CallerIdentity, req CreateTenantRequest) (Tenant, error)
	List(ctx context.Context, caller identity.CallerIdentity) ([]Tenant, error)
	Get(ctx context.Context, caller identity.CallerIdentity, id string) (TenantDetail, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("tenant_not_found")
	ErrFullNameRequired = errors.New("tenant_full_name_required")
	ErrPhoneRequired    = errors.New("tenant_phone_required")
	ErrInvalidEmail     = errors.New("tenant_invalid_email")
)
