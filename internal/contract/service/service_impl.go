package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/contract/domain"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/smallbiznis/roomlease/internal/observability/metrics"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
	"github.com/smallbiznis/roomlease/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sourceContract   = "contract"
	sourceRoomTenant = "room_tenant"
	sourceTenant     = "tenant_delete"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Authz      authorization.Service
	Scope      authorization.Scope
	AuditSvc   auditdomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
	Repo       domain.Repository
	RoomRepo   roomdomain.Repository
	TenantRepo tenantdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	authz      authorization.Service
	scope      authorization.Scope
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
	repo       domain.Repository
	roomRepo   roomdomain.Repository
	tenantRepo tenantdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("contract.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		authz:      p.Authz,
		scope:      p.Scope,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
		repo:       p.Repo,
		roomRepo:   p.RoomRepo,
		tenantRepo: p.TenantRepo,
	}
}

func (s *Service) Create(ctx context.Context, caller identity.CallerIdentity, req domain.CreateContractRequest) (domain.ContractView, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectContract, authorization.ActionCreate); err != nil {
		return domain.ContractView{}, err
	}

	tenantID, err := parseID(req.TenantID)
	if err != nil {
		return domain.ContractView{}, err
	}
	roomID, err := parseID(req.RoomID)
	if err != nil {
		return domain.ContractView{}, err
	}
	if !req.MonthlyRent.IsPositive() {
		return domain.ContractView{}, domain.ErrInvalidRent
	}
	startDate, err := s.startDate(req.StartDate)
	if err != nil {
		return domain.ContractView{}, err
	}

	var contract *domain.Contract
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, room, err := s.loadPair(ctx, tx, tenantID, roomID)
		if err != nil {
			return err
		}

		contract, err = s.openContract(ctx, tx, caller, tenant, room, startDate, req.MonthlyRent, sourceContract)
		return err
	})
	if err != nil {
		return domain.ContractView{}, err
	}

	s.metrics.RecordContractOpened(ctx, sourceContract)
	return domain.ViewFor(caller.Role, *contract), nil
}

func (s *Service) AddTenantToRoom(ctx context.Context, caller identity.CallerIdentity, roomID string, req domain.AddTenantRequest) (domain.ContractView, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoomTenant, authorization.ActionAdd); err != nil {
		return domain.ContractView{}, err
	}

	parsedRoomID, err := parseID(roomID)
	if err != nil {
		return domain.ContractView{}, err
	}
	tenantID, err := parseID(req.TenantID)
	if err != nil {
		return domain.ContractView{}, err
	}
	if req.MonthlyRent != nil && !req.MonthlyRent.IsPositive() {
		return domain.ContractView{}, domain.ErrInvalidRent
	}
	startDate, err := s.startDate(req.StartDate)
	if err != nil {
		return domain.ContractView{}, err
	}

	var contract *domain.Contract
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, room, err := s.loadPair(ctx, tx, tenantID, parsedRoomID)
		if err != nil {
			return err
		}

		rent := room.Price
		if req.MonthlyRent != nil {
			rent = *req.MonthlyRent
		}

		contract, err = s.openContract(ctx, tx, caller, tenant, room, startDate, rent, sourceRoomTenant)
		return err
	})
	if err != nil {
		return domain.ContractView{}, err
	}

	s.metrics.RecordContractOpened(ctx, sourceRoomTenant)
	return domain.ViewFor(caller.Role, *contract), nil
}

// Terminate is idempotent: a terminated contract is left untouched.
func (s *Service) Terminate(ctx context.Context, caller identity.CallerIdentity, id string) error {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectContract, authorization.ActionTerminate); err != nil {
		return err
	}

	contractID, err := parseID(id)
	if err != nil {
		return err
	}

	// Repeated terminations return without taking the row lock.
	current, err := s.repo.FindByID(ctx, s.db, contractID)
	if err != nil {
		return err
	}
	if current == nil {
		return domain.ErrNotFound
	}
	if !current.IsActive() {
		return nil
	}

	changed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.repo.FindByIDForUpdate(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return domain.ErrNotFound
		}
		if !contract.IsActive() {
			return nil
		}

		changed = true
		return s.terminate(ctx, tx, caller, contract, sourceContract)
	})
	if err != nil {
		return err
	}

	if changed {
		s.metrics.RecordContractTerminated(ctx, sourceContract)
	}
	return nil
}

func (s *Service) RemoveTenantFromRoom(ctx context.Context, caller identity.CallerIdentity, roomID, tenantID string) error {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoomTenant, authorization.ActionRemove); err != nil {
		return err
	}

	parsedRoomID, err := parseID(roomID)
	if err != nil {
		return err
	}
	parsedTenantID, err := parseID(tenantID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.repo.FindActiveForUpdate(ctx, tx, parsedRoomID, parsedTenantID)
		if err != nil {
			return err
		}
		if contract == nil {
			return domain.ErrNoActiveContract
		}
		return s.terminate(ctx, tx, caller, contract, sourceRoomTenant)
	})
	if err != nil {
		return err
	}

	s.metrics.RecordContractTerminated(ctx, sourceRoomTenant)
	return nil
}

// DeleteTenant terminates the tenant's active contracts and removes the
// tenant together with its contract history. Rooms are left as they are.
func (s *Service) DeleteTenant(ctx context.Context, caller identity.CallerIdentity, tenantID string) error {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectTenant, authorization.ActionDelete); err != nil {
		return err
	}

	parsedTenantID, err := parseID(tenantID)
	if err != nil {
		return err
	}

	terminated := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := s.tenantRepo.FindByIDForUpdate(ctx, tx, parsedTenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return domain.ErrTenantNotFound
		}

		invoices, err := s.repo.CountInvoicesByTenant(ctx, tx, parsedTenantID)
		if err != nil {
			return err
		}
		if invoices > 0 {
			return domain.ErrTenantHasInvoices
		}

		active, err := s.repo.ListActiveByTenantForUpdate(ctx, tx, parsedTenantID)
		if err != nil {
			return err
		}
		for _, contract := range active {
			if err := s.terminate(ctx, tx, caller, contract, sourceTenant); err != nil {
				return err
			}
			terminated++
		}

		if err := s.repo.DeleteByTenant(ctx, tx, parsedTenantID); err != nil {
			return mapDeleteErr(err)
		}
		if err := s.tenantRepo.Delete(ctx, tx, parsedTenantID); err != nil {
			return mapDeleteErr(err)
		}

		targetID := parsedTenantID.String()
		return s.auditSvc.AuditLog(ctx, tx, caller, auditdomain.ActionTenantDelete, auditdomain.TargetTenant, &targetID, map[string]any{
			"full_name":            tenant.FullName,
			"terminated_contracts": terminated,
		})
	})
	if err != nil {
		return err
	}

	for i := 0; i < terminated; i++ {
		s.metrics.RecordContractTerminated(ctx, sourceTenant)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, caller identity.CallerIdentity, id string) (domain.ContractView, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectContract, authorization.ActionView); err != nil {
		return domain.ContractView{}, err
	}

	contractID, err := parseID(id)
	if err != nil {
		return domain.ContractView{}, err
	}

	contract, err := s.repo.FindWithRelations(ctx, s.db, contractID)
	if err != nil {
		return domain.ContractView{}, err
	}
	if contract == nil {
		return domain.ContractView{}, domain.ErrNotFound
	}

	if err := s.scope.CanReadContract(ctx, caller, contract.ID); err != nil {
		return domain.ContractView{}, err
	}
	return domain.ViewFor(caller.Role, *contract), nil
}

// MyContract returns the caller's most recently started active contract.
func (s *Service) MyContract(ctx context.Context, caller identity.CallerIdentity) (domain.ContractView, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectContract, authorization.ActionViewOwn); err != nil {
		return domain.ContractView{}, err
	}

	filter, err := s.scope.ActiveContractIDs(ctx, caller, nil)
	if err != nil {
		return domain.ContractView{}, err
	}
	if len(filter.IDs) == 0 {
		return domain.ContractView{}, domain.ErrNoActiveContract
	}

	contract, err := s.repo.FindWithRelations(ctx, s.db, filter.IDs[0])
	if err != nil {
		return domain.ContractView{}, err
	}
	if contract == nil {
		return domain.ContractView{}, domain.ErrNoActiveContract
	}
	return domain.ViewFor(caller.Role, *contract), nil
}

func (s *Service) ListRoomTenants(ctx context.Context, caller identity.CallerIdentity, roomID string) ([]domain.RoomTenant, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoomTenant, authorization.ActionView); err != nil {
		return nil, err
	}

	parsedRoomID, err := parseID(roomID)
	if err != nil {
		return nil, err
	}

	room, err := s.roomRepo.FindByID(ctx, s.db, parsedRoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	tenants, err := s.repo.ListRoomTenants(ctx, s.db, parsedRoomID)
	if err != nil {
		return nil, err
	}
	if tenants == nil {
		tenants = []domain.RoomTenant{}
	}
	return tenants, nil
}

// openContract is the only way an ACTIVE contract comes into existence.
// The row lock catches the common case; the partial unique index catches
// a concurrent insert that slipped past it.
func (s *Service) openContract(
	ctx context.Context,
	tx *gorm.DB,
	caller identity.CallerIdentity,
	tenant *tenantdomain.Tenant,
	room *roomdomain.Room,
	startDate time.Time,
	rent decimal.Decimal,
	source string,
) (*domain.Contract, error) {
	existing, err := s.repo.FindActiveForUpdate(ctx, tx, room.ID, tenant.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrActiveExists
	}

	contract := &domain.Contract{
		ID:          s.genID.Generate(),
		TenantID:    tenant.ID,
		RoomID:      room.ID,
		MonthlyRent: rent,
		StartDate:   startDate,
		Status:      domain.ContractStatusActive,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, tx, contract); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrActiveExists
		}
		return nil, err
	}

	targetID := contract.ID.String()
	if err := s.auditSvc.AuditLog(ctx, tx, caller, auditdomain.ActionContractOpen, auditdomain.TargetContract, &targetID, map[string]any{
		"tenant_id":    tenant.ID.String(),
		"room_id":      room.ID.String(),
		"monthly_rent": rent.String(),
		"start_date":   startDate.Format(domain.DateLayout),
		"source":       source,
	}); err != nil {
		return nil, err
	}

	contract.Tenant = tenant
	contract.Room = room
	return contract, nil
}

func (s *Service) terminate(ctx context.Context, tx *gorm.DB, caller identity.CallerIdentity, contract *domain.Contract, source string) error {
	now := s.clock.Now().UTC()
	endDate := clock.DateOnly(now)

	contract.Status = domain.ContractStatusTerminated
	contract.TerminatedAt = &now
	contract.EndDate = &endDate
	if err := s.repo.Terminate(ctx, tx, contract); err != nil {
		return err
	}

	targetID := contract.ID.String()
	return s.auditSvc.AuditLog(ctx, tx, caller, auditdomain.ActionContractTerminate, auditdomain.TargetContract, &targetID, map[string]any{
		"tenant_id": contract.TenantID.String(),
		"room_id":   contract.RoomID.String(),
		"source":    source,
	})
}

func (s *Service) loadPair(ctx context.Context, tx *gorm.DB, tenantID, roomID snowflake.ID) (*tenantdomain.Tenant, *roomdomain.Room, error) {
	tenant, err := s.tenantRepo.FindByIDForUpdate(ctx, tx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if tenant == nil {
		return nil, nil, domain.ErrTenantNotFound
	}

	room, err := s.roomRepo.FindByIDForUpdate(ctx, tx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if room == nil {
		return nil, nil, domain.ErrRoomNotFound
	}
	return tenant, room, nil
}

func (s *Service) startDate(value *string) (time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return clock.DateOnly(s.clock.Now().UTC()), nil
	}
	parsed, err := time.Parse(domain.DateLayout, strings.TrimSpace(*value))
	if err != nil {
		return time.Time{}, domain.ErrInvalidStartDate
	}
	return parsed, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func mapDeleteErr(err error) error {
	if db.IsForeignKeyErr(err) {
		return domain.ErrTenantHasInvoices
	}
	return err
}
