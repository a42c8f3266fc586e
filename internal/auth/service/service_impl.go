package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/auth/domain"
	"github.com/smallbiznis/roomlease/internal/auth/password"
	"github.com/smallbiznis/roomlease/internal/auth/token"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/smallbiznis/roomlease/internal/observability/metrics"
	"github.com/smallbiznis/roomlease/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
	tenantservice "github.com/smallbiznis/roomlease/internal/tenant/service"
	"github.com/smallbiznis/roomlease/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	loginSuccess            = "success"
	loginInvalidCredentials = "invalid_credentials"
	loginThrottled          = "throttled"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Tokens     *token.Manager
	AuditSvc   auditdomain.Service
	Limiter    *ratelimit.LoginLimiter `optional:"true"`
	Metrics    *metrics.Metrics        `optional:"true"`
	Repo       domain.Repository
	TenantRepo tenantdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	tokens     *token.Manager
	auditSvc   auditdomain.Service
	limiter    *ratelimit.LoginLimiter
	metrics    *metrics.Metrics
	repo       domain.Repository
	tenantRepo tenantdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("auth.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		tokens:     p.Tokens,
		auditSvc:   p.AuditSvc,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
	}
}

// Register creates a login account. Tenant accounts get a linked tenant
// profile in the same transaction.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Profile, error) {
	if !s.limiter.Allow(ctx, req.ClientIP) {
		return nil, domain.ErrTooManyAttempts
	}

	role, email, err := validateRegistration(req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role.String(),
		PasswordHash: hash,
		CreatedAt:    now,
	}

	var tenantID *snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.ExistsByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrEmailExists
		}

		if err := s.repo.Insert(ctx, tx, &user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailExists
			}
			return err
		}

		if role == identity.RoleTenant {
			var phone string
			if req.Phone != nil {
				phone = *req.Phone
			}
			tenant, err := tenantservice.NewTenant(s.genID, s.clock, tenantdomain.CreateTenantRequest{
				FullName: user.FullName,
				Phone:    phone,
				Email:    &email,
			})
			if err != nil {
				return err
			}
			tenant.UserID = &user.ID
			if err := s.tenantRepo.Insert(ctx, tx, &tenant); err != nil {
				return err
			}
			tenantID = &tenant.ID
		}

		targetID := user.ID.String()
		metadata := map[string]any{"email": user.Email, "role": user.Role}
		if tenantID != nil {
			metadata["tenant_id"] = tenantID.String()
		}
		return s.auditSvc.AuditLog(ctx, tx, user.Caller(), auditdomain.ActionUserRegister, auditdomain.TargetUser, &targetID, metadata)
	})
	if err != nil {
		return nil, err
	}

	return s.issue(user, tenantID)
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Profile, error) {
	if !s.limiter.Allow(ctx, req.ClientIP) {
		s.metrics.RecordLoginAttempt(ctx, loginThrottled)
		return nil, domain.ErrTooManyAttempts
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		s.metrics.RecordLoginAttempt(ctx, loginInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		s.metrics.RecordLoginAttempt(ctx, loginInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	if password.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, req.Password)
	}

	tenantID, err := s.tenantIDFor(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLoginAttempt(ctx, loginSuccess)
	return s.issue(*user, tenantID)
}

func (s *Service) Me(ctx context.Context, caller identity.CallerIdentity) (*domain.Profile, error) {
	if caller.IsAnonymous() {
		return nil, authorization.ErrUnauthorized
	}

	user, err := s.repo.FindByID(ctx, s.db, caller.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	tenantID, err := s.tenantIDFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return profileOf(*user, tenantID), nil
}

// Authenticate resolves a bearer token to the current state of its user,
// so role changes and deletions take effect before the token expires.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (identity.CallerIdentity, error) {
	claimed, err := s.tokens.Parse(rawToken)
	if err != nil {
		return identity.CallerIdentity{}, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, s.db, claimed.UserID)
	if err != nil {
		return identity.CallerIdentity{}, err
	}
	if user == nil {
		return identity.CallerIdentity{}, domain.ErrInvalidToken
	}

	caller := user.Caller()
	if caller.Role == "" {
		return identity.CallerIdentity{}, domain.ErrInvalidToken
	}
	return caller, nil
}

func (s *Service) issue(user domain.User, tenantID *snowflake.ID) (*domain.Profile, error) {
	raw, err := s.tokens.Issue(user.Caller())
	if err != nil {
		return nil, err
	}
	profile := profileOf(user, tenantID)
	profile.Token = raw
	return profile, nil
}

func (s *Service) tenantIDFor(ctx context.Context, user *domain.User) (*snowflake.ID, error) {
	if user.Role != identity.RoleTenant.String() {
		return nil, nil
	}
	tenant, err := s.tenantRepo.FindByUserID(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, nil
	}
	return &tenant.ID, nil
}

func (s *Service) rehash(ctx context.Context, user *domain.User, plain string) {
	hash, err := password.Hash(plain)
	if err != nil {
		s.log.Warn("password rehash failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, s.db, user.ID, hash, s.clock.Now().UTC()); err != nil {
		s.log.Warn("password rehash failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	user.PasswordHash = hash
}

// validateRegistration reports the first failing field in the order
// email, password, full name, phone, password length.
func validateRegistration(req domain.RegisterRequest) (identity.Role, string, error) {
	role := identity.RoleTenant
	roleValid := true
	if strings.TrimSpace(req.Role) != "" {
		role, roleValid = identity.ParseRole(req.Role)
	}

	if strings.TrimSpace(req.Email) == "" {
		return "", "", domain.ErrEmailRequired
	}
	if req.Password == "" {
		return "", "", domain.ErrPasswordRequired
	}
	if strings.TrimSpace(req.FullName) == "" {
		return "", "", domain.ErrFullNameRequired
	}
	if roleValid && role == identity.RoleTenant && (req.Phone == nil || strings.TrimSpace(*req.Phone) == "") {
		return "", "", domain.ErrPhoneRequired
	}
	if len(req.Password) < domain.MinPasswordLength {
		return "", "", domain.ErrPasswordTooShort
	}
	if !roleValid {
		return "", "", domain.ErrInvalidRole
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return "", "", domain.ErrInvalidEmail
	}
	return role, email, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return identity.NormalizeEmail(addr.Address), nil
}

func profileOf(user domain.User, tenantID *snowflake.ID) *domain.Profile {
	return &domain.Profile{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		TenantID: tenantID,
	}
}
