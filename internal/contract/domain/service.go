package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/roomlease/internal/identity"
)

type CreateContractRequest struct {
	TenantID    string          `json:"tenant_id"`
	RoomID      string          `json:"room_id"`
	StartDate   *string         `json:"start_date"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}

type AddTenantRequest struct {
	TenantID    string           `json:"tenant_id"`
	StartDate   *string          `json:"start_date"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent"`
}

// Service owns the contract state machine. Every new ACTIVE contract goes
// through a single guarded constructor.
type Service interface {
	Create(ctx context.Context, caller identity.CallerIdentity, req CreateContractRequest) (ContractView, error)
	AddTenantToRoom(ctx context.Context, caller identity.CallerIdentity, roomID string, req AddTenantRequest) (ContractView, error)
	Terminate(ctx context.Context, caller identity.CallerIdentity, id string) error
	RemoveTenantFromRoom(ctx context.Context, caller identity.CallerIdentity, roomID, tenantID string) error
	DeleteTenant(ctx context.Context, caller identity.CallerIdentity, tenantID string) error
	Get(ctx context.Context, caller identity.CallerIdentity, id string) (ContractView, error)
	MyContract(ctx context.Context, caller identity.CallerIdentity) (ContractView, error)
	ListRoomTenants(ctx context.Context, caller identity.CallerIdentity, roomID string) ([]RoomTenant, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("contract_not_found")
	ErrRoomNotFound      = errors.New("room_not_found")
	ErrTenantNotFound    = errors.New("tenant_not_found")
	ErrNoActiveContract  = errors.New("no_active_contract")
	ErrActiveExists      = errors.New("active_contract_exists")
	ErrInvalidRent       = errors.New("contract_invalid_rent")
	ErrInvalidStartDate  = errors.New("contract_invalid_start_date")
	ErrTenantHasInvoices = errors.New("tenant_has_invoices")
)

// DateLayout is the accepted format for date-only request fields.
const DateLayout = "2006-01-02"
