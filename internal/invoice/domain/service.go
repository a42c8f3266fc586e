package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/roomlease/internal/identity"
)

type CreateInvoiceRequest struct {
	ContractID string  `json:"contract_id"`
	Period     string  `json:"period"`
	IssueDate  *string `json:"issue_date"`
	DueDate    *string `json:"due_date"`

	ElectricOldReading  decimal.NullDecimal `json:"electric_old_reading"`
	ElectricNewReading  decimal.NullDecimal `json:"electric_new_reading"`
	ElectricConsumption decimal.NullDecimal `json:"electric_consumption"`
	ElectricUnitPrice   decimal.Decimal     `json:"electric_unit_price"`
	ElectricCost        decimal.Decimal     `json:"electric_cost"`

	WaterOldReading  decimal.NullDecimal `json:"water_old_reading"`
	WaterNewReading  decimal.NullDecimal `json:"water_new_reading"`
	WaterConsumption decimal.NullDecimal `json:"water_consumption"`
	WaterUnitPrice   decimal.Decimal     `json:"water_unit_price"`
	WaterCost        decimal.Decimal     `json:"water_cost"`

	ServiceCost       decimal.Decimal `json:"service_cost"`
	ServiceUnitPrice  decimal.Decimal `json:"service_unit_price"`
	RoomRent          decimal.Decimal `json:"room_rent"`
	RoomRentUnitPrice decimal.Decimal `json:"room_rent_unit_price"`

	Deposit decimal.NullDecimal `json:"deposit"`
	Amount  decimal.Decimal     `json:"amount"`
	Notes   *string             `json:"notes"`
}

type PayInvoiceRequest struct {
	PaidAmount decimal.NullDecimal `json:"paid_amount"`
	Notes      *string             `json:"notes"`
}

type ListInvoiceRequest struct {
	RoomID string `form:"room_id"`
}

type Service interface {
	Create(ctx context.Context, caller identity.CallerIdentity, req CreateInvoiceRequest) (Invoice, error)
	Pay(ctx context.Context, caller identity.CallerIdentity, id string, req PayInvoiceRequest) (Invoice, error)
	Get(ctx context.Context, caller identity.CallerIdentity, id string) (Invoice, error)
	MyInvoices(ctx context.Context, caller identity.CallerIdentity) ([]Invoice, error)
	List(ctx context.Context, caller identity.CallerIdentity, req ListInvoiceRequest) ([]Invoice, error)
	ListRoomInvoices(ctx context.Context, caller identity.CallerIdentity, roomID string) ([]Invoice, error)
	// MarkOverdue moves PENDING invoices due before today to OVERDUE.
	MarkOverdue(ctx context.Context, caller identity.CallerIdentity, now time.Time) (int64, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("invoice_not_found")
	ErrContractNotFound  = errors.New("contract_not_found")
	ErrRoomNotFound      = errors.New("room_not_found")
	ErrContractNotActive = errors.New("contract_not_active")
	ErrAlreadyPaid       = errors.New("invoice_already_paid")
	ErrPeriodRequired    = errors.New("invoice_period_required")
	ErrInvalidDate       = errors.New("invoice_invalid_date")
	ErrDueBeforeIssue    = errors.New("invoice_due_before_issue")
	ErrNegativeAmount    = errors.New("invoice_negative_amount")
	ErrInvalidPaidAmount = errors.New("invoice_invalid_paid_amount")
	ErrDuplicateNumber   = errors.New("invoice_duplicate_number")
)

// DateLayout is the accepted format for date-only request fields.
const DateLayout = "2006-01-02"
