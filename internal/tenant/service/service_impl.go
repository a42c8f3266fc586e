package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/smallbiznis/roomlease/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Authz    authorization.Service
	AuditSvc auditdomain.Service
	Repo     domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	authz    authorization.Service
	auditSvc auditdomain.Service
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tenant.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		authz:    p.Authz,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, caller identity.CallerIdentity, req domain.CreateTenantRequest) (domain.Tenant, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectTenant, authorization.ActionCreate); err != nil {
		return domain.Tenant{}, err
	}

	tenant, err := NewTenant(s.genID, s.clock, req)
	if err != nil {
		return domain.Tenant{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &tenant); err != nil {
			return err
		}
		targetID := tenant.ID.String()
		return s.auditSvc.AuditLog(ctx, tx, caller, auditdomain.ActionTenantCreate, auditdomain.TargetTenant, &targetID, map[string]any{
			"full_name": tenant.FullName,
			"phone":     tenant.Phone,
		})
	})
	if err != nil {
		return domain.Tenant{}, err
	}
	return tenant, nil
}

// NewTenant validates a profile request. Registration reuses it so both
// entry points apply the same rules.
func NewTenant(genID *snowflake.Node, clk clock.Clock, req domain.CreateTenantRequest) (domain.Tenant, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.Tenant{}, domain.ErrFullNameRequired
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.Tenant{}, domain.ErrPhoneRequired
	}

	var email *string
	if req.Email != nil {
		normalized := identity.NormalizeEmail(*req.Email)
		if normalized != "" {
			if !strings.Contains(normalized, "@") {
				return domain.Tenant{}, domain.ErrInvalidEmail
			}
			email = &normalized
		}
	}

	return domain.Tenant{
		ID:        genID.Generate(),
		FullName:  fullName,
		Phone:     phone,
		Email:     email,
		Address:   trimmedOrNil(req.Address),
		CreatedAt: clk.Now().UTC(),
	}, nil
}

func (s *Service) List(ctx context.Context, caller identity.CallerIdentity) ([]domain.Tenant, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectTenant, authorization.ActionView); err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	tenants := make([]domain.Tenant, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tenants = append(tenants, *item)
	}
	return tenants, nil
}

func (s *Service) Get(ctx context.Context, caller identity.CallerIdentity, id string) (domain.TenantDetail, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectTenant, authorization.ActionView); err != nil {
		return domain.TenantDetail{}, err
	}

	tenantID, err := s.parseID(id)
	if err != nil {
		return domain.TenantDetail{}, err
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return domain.TenantDetail{}, err
	}
	if tenant == nil {
		return domain.TenantDetail{}, domain.ErrNotFound
	}

	contracts, err := s.repo.ListContracts(ctx, s.db, tenantID)
	if err != nil {
		return domain.TenantDetail{}, err
	}
	if contracts == nil {
		contracts = []domain.ContractSummary{}
	}

	return domain.TenantDetail{Tenant: *tenant, Contracts: contracts}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
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
