package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/config"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	"github.com/smallbiznis/roomlease/internal/identity"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	"github.com/smallbiznis/roomlease/internal/observability/metrics"
	"github.com/smallbiznis/roomlease/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   config.InvoicePolicySource
	Authz    authorization.Service
	Scope    authorization.Scope
	AuditSvc auditdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
	Repo     invoicedomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   config.InvoicePolicySource
	authz    authorization.Service
	scope    authorization.Scope
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
	repo     invoicedomain.Repository
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		authz:    p.Authz,
		scope:    p.Scope,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
		repo:     p.Repo,
	}
}

type contractRow struct {
	ID     snowflake.ID
	RoomID snowflake.ID
	Status contractdomain.ContractStatus
}

func (s *Service) Create(ctx context.Context, caller identity.CallerIdentity, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectInvoice, authorization.ActionCreate); err != nil {
		return invoicedomain.Invoice{}, err
	}

	contractID, err := parseID(req.ContractID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	period := strings.TrimSpace(req.Period)
	if period == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrPeriodRequired
	}
	if err := validateAmounts(req); err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	policy := s.policy.Get()

	issueDate := clock.DateOnly(now)
	if req.IssueDate != nil && strings.TrimSpace(*req.IssueDate) != "" {
		issueDate, err = parseDate(*req.IssueDate)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}
	dueDate := issueDate.AddDate(0, 0, policy.DueInDays)
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		dueDate, err = parseDate(*req.DueDate)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}
	if dueDate.Before(issueDate) {
		return invoicedomain.Invoice{}, invoicedomain.ErrDueBeforeIssue
	}

	var invoice invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.loadContractForUpdate(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return invoicedomain.ErrContractNotFound
		}
		if contract.Status != contractdomain.ContractStatusActive {
			return invoicedomain.ErrContractNotActive
		}

		invoice = invoicedomain.Invoice{
			ID:                  s.genID.Generate(),
			RoomID:              contract.RoomID,
			ContractID:          contract.ID,
			InvoiceNumber:       invoiceNumber(policy.NumberPrefix, contract.ID, now),
			IssueDate:           issueDate,
			DueDate:             dueDate,
			Period:              period,
			ElectricOldReading:  req.ElectricOldReading,
			ElectricNewReading:  req.ElectricNewReading,
			ElectricConsumption: req.ElectricConsumption,
			ElectricUnitPrice:   req.ElectricUnitPrice,
			ElectricCost:        req.ElectricCost,
			WaterOldReading:     req.WaterOldReading,
			WaterNewReading:     req.WaterNewReading,
			WaterConsumption:    req.WaterConsumption,
			WaterUnitPrice:      req.WaterUnitPrice,
			WaterCost:           req.WaterCost,
			ServiceCost:         req.ServiceCost,
			ServiceUnitPrice:    req.ServiceUnitPrice,
			RoomRent:            req.RoomRent,
			RoomRentUnitPrice:   req.RoomRentUnitPrice,
			Deposit:             req.Deposit,
			Status:              invoicedomain.InvoiceStatusPending,
			Notes:               trimmedOrNil(req.Notes),
			CreatedAt:           now,
		}
		invoice.Amount = req.Amount
		if !invoice.Amount.IsPositive() {
			invoice.Amount = invoice.Total()
		}

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateNumber
			}
			return err
		}

		targetID := invoice.ID.String()
		return s.auditSvc.AuditLog(ctx, tx, caller, auditdomain.ActionInvoiceCreate, auditdomain.TargetInvoice, &targetID, map[string]any{
			"invoice_number": invoice.InvoiceNumber,
			"contract_id":    invoice.ContractID.String(),
			"amount":         invoice.Amount.String(),
			"currency":       policy.CurrencyLabel,
		})
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceCreated(ctx)
	return invoice, nil
}

// Pay settles a pending or overdue invoice. Only the tenant named on the
// invoice's contract may pay it.
func (s *Service) Pay(ctx context.Context, caller identity.CallerIdentity, id string, req invoicedomain.PayInvoiceRequest) (invoicedomain.Invoice, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectInvoice, authorization.ActionPay); err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if req.PaidAmount.Valid && !req.PaidAmount.Decimal.IsPositive() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidPaidAmount
	}

	existing, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if existing == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	if err := s.scope.CanReadInvoice(ctx, caller, invoiceID); err != nil {
		return invoicedomain.Invoice{}, err
	}

	var (
		paid       invoicedomain.Invoice
		fromStatus invoicedomain.InvoiceStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if !invoice.Payable() {
			return invoicedomain.ErrAlreadyPaid
		}

		now := s.clock.Now().UTC()
		fromStatus = invoice.Status
		amount := invoice.Amount
		if req.PaidAmount.Valid {
			amount = req.PaidAmount.Decimal
		}

		invoice.Status = invoicedomain.InvoiceStatusPaid
		invoice.PaidAmount = decimal.NewNullDecimal(amount)
		invoice.PaidDate = &now
		// Notes describe the payment and replace whatever was set at issue.
		invoice.Notes = trimmedOrNil(req.Notes)
		if err := s.repo.MarkPaid(ctx, tx, invoice); err != nil {
			return err
		}

		targetID := invoice.ID.String()
		if err := s.auditSvc.AuditLog(ctx, tx, caller, auditdomain.ActionInvoicePay, auditdomain.TargetInvoice, &targetID, map[string]any{
			"invoice_number": invoice.InvoiceNumber,
			"paid_amount":    amount.String(),
			"from_status":    string(fromStatus),
		}); err != nil {
			return err
		}

		paid = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoicePaid(ctx, string(fromStatus))
	return paid, nil
}

func (s *Service) Get(ctx context.Context, caller identity.CallerIdentity, id string) (invoicedomain.Invoice, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectInvoice, authorization.ActionView); err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	if err := s.scope.CanReadInvoice(ctx, caller, invoice.ID); err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *invoice, nil
}

// MyInvoices lists invoices of the caller's active contracts.
func (s *Service) MyInvoices(ctx context.Context, caller identity.CallerIdentity) ([]invoicedomain.Invoice, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectInvoice, authorization.ActionViewOwn); err != nil {
		return nil, err
	}

	filter, err := s.scope.ActiveContractIDs(ctx, caller, nil)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, invoicedomain.ListFilter{
		Restricted:  !filter.Unrestricted,
		ContractIDs: filter.IDs,
	})
}

func (s *Service) List(ctx context.Context, caller identity.CallerIdentity, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectInvoice, authorization.ActionList); err != nil {
		return nil, err
	}

	filter := invoicedomain.ListFilter{}
	if roomID := strings.TrimSpace(req.RoomID); roomID != "" {
		parsed, err := parseID(roomID)
		if err != nil {
			return nil, err
		}
		filter.RoomID = &parsed
	}
	return s.list(ctx, filter)
}

// ListRoomInvoices lists a room's invoices. Tenants see only the invoices
// of their active contracts in the room and are refused without one.
func (s *Service) ListRoomInvoices(ctx context.Context, caller identity.CallerIdentity, roomID string) ([]invoicedomain.Invoice, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoomInvoice, authorization.ActionView); err != nil {
		return nil, err
	}

	parsedRoomID, err := parseID(roomID)
	if err != nil {
		return nil, err
	}
	exists, err := s.roomExists(ctx, parsedRoomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, invoicedomain.ErrRoomNotFound
	}

	scoped, err := s.scope.ActiveContractIDs(ctx, caller, &parsedRoomID)
	if err != nil {
		return nil, err
	}
	if !scoped.Unrestricted && scoped.Empty() {
		return nil, authorization.ErrForbidden
	}

	return s.list(ctx, invoicedomain.ListFilter{
		RoomID:      &parsedRoomID,
		Restricted:  !scoped.Unrestricted,
		ContractIDs: scoped.IDs,
	})
}

// MarkOverdue moves PENDING invoices whose due date is before the day of
// now into OVERDUE.
func (s *Service) MarkOverdue(ctx context.Context, caller identity.CallerIdentity, now time.Time) (int64, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectInvoice, authorization.ActionMarkOverdue); err != nil {
		return 0, err
	}

	today := clock.DateOnly(now)
	count, err := s.repo.MarkOverdue(ctx, s.db, today)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.auditSvc.AuditLog(ctx, nil, caller, auditdomain.ActionInvoiceOverdue, auditdomain.TargetInvoice, nil, map[string]any{
		"count":      count,
		"due_before": today.Format(invoicedomain.DateLayout),
	}); err != nil {
		s.log.Warn("failed to audit overdue sweep", zap.Error(err))
	}
	s.metrics.RecordInvoicesOverdue(ctx, count)
	return count, nil
}

func (s *Service) list(ctx context.Context, filter invoicedomain.ListFilter) ([]invoicedomain.Invoice, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoices, nil
}

func (s *Service) loadContractForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*contractRow, error) {
	var row contractRow
	err := tx.WithContext(ctx).
		Table("contracts").
		Select("id, room_id, status").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Service) roomExists(ctx context.Context, id snowflake.ID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Table("rooms").Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// invoiceNumber renders PREFIX-yyyy-MM-contractID-HHmmss from the creation instant.
func invoiceNumber(prefix string, contractID snowflake.ID, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s", prefix, now.Format("2006-01"), contractID.String(), now.Format("150405"))
}

func validateAmounts(req invoicedomain.CreateInvoiceRequest) error {
	amounts := []decimal.Decimal{
		req.ElectricUnitPrice, req.ElectricCost,
		req.WaterUnitPrice, req.WaterCost,
		req.ServiceCost, req.ServiceUnitPrice,
		req.RoomRent, req.RoomRentUnitPrice,
		req.Amount,
	}
	for _, nullable := range []decimal.NullDecimal{
		req.ElectricOldReading, req.ElectricNewReading, req.ElectricConsumption,
		req.WaterOldReading, req.WaterNewReading, req.WaterConsumption,
		req.Deposit,
	} {
		if nullable.Valid {
			amounts = append(amounts, nullable.Decimal)
		}
	}
	for _, amount := range amounts {
		if amount.IsNegative() {
			return invoicedomain.ErrNegativeAmount
		}
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(invoicedomain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invoicedomain.ErrInvalidDate
	}
	return parsed, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
