package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/roomlease/internal/identity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectRoom        = "room"
	ObjectRoomTenant  = "room_tenant"
	ObjectRoomInvoice = "room_invoice"
	ObjectContract    = "contract"
	ObjectInvoice     = "invoice"
	ObjectTenant      = "tenant"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionView        = "view"
	ActionViewOwn     = "view_own"
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionAdd         = "add"
	ActionRemove      = "remove"
	ActionTerminate   = "terminate"
	ActionList        = "list"
	ActionPay         = "pay"
	ActionMarkOverdue = "mark_overdue"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, caller identity.CallerIdentity, object string, action string) error {
	if caller.IsAnonymous() {
		return ErrUnauthorized
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(caller.Role.Subject(), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("role", caller.Role.String()),
			zap.String("actor_id", caller.ActorID()),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Admin permissions
		{"role:admin", ObjectRoom, ActionView},
		{"role:admin", ObjectRoom, ActionCreate},
		{"role:admin", ObjectRoomTenant, ActionView},
		{"role:admin", ObjectRoomTenant, ActionAdd},
		{"role:admin", ObjectRoomTenant, ActionRemove},
		{"role:admin", ObjectRoomInvoice, ActionView},
		{"role:admin", ObjectContract, ActionView},
		{"role:admin", ObjectInvoice, ActionView},
		{"role:admin", ObjectInvoice, ActionCreate},
		{"role:admin", ObjectInvoice, ActionList},
		{"role:admin", ObjectTenant, ActionDelete},
		{"role:admin", ObjectAuditLog, ActionView},

		// Owner permissions
		{"role:owner", ObjectRoom, ActionView},
		{"role:owner", ObjectRoom, ActionCreate},
		{"role:owner", ObjectRoom, ActionUpdate},
		{"role:owner", ObjectRoom, ActionDelete},
		{"role:owner", ObjectRoomTenant, ActionView},
		{"role:owner", ObjectRoomTenant, ActionAdd},
		{"role:owner", ObjectRoomTenant, ActionRemove},
		{"role:owner", ObjectRoomInvoice, ActionView},
		{"role:owner", ObjectContract, ActionView},
		{"role:owner", ObjectContract, ActionCreate},
		{"role:owner", ObjectContract, ActionTerminate},
		{"role:owner", ObjectInvoice, ActionView},
		{"role:owner", ObjectInvoice, ActionCreate},
		{"role:owner", ObjectInvoice, ActionList},
		{"role:owner", ObjectTenant, ActionView},
		{"role:owner", ObjectTenant, ActionCreate},
		{"role:owner", ObjectTenant, ActionDelete},
		{"role:owner", ObjectAuditLog, ActionView},

		// Tenant permissions (row scope applied separately)
		{"role:tenant", ObjectRoom, ActionView},
		{"role:tenant", ObjectRoom, ActionViewOwn},
		{"role:tenant", ObjectRoomInvoice, ActionView},
		{"role:tenant", ObjectContract, ActionView},
		{"role:tenant", ObjectContract, ActionViewOwn},
		{"role:tenant", ObjectInvoice, ActionView},
		{"role:tenant", ObjectInvoice, ActionViewOwn},
		{"role:tenant", ObjectInvoice, ActionPay},

		// System permissions (scheduled jobs)
		{"role:system", ObjectInvoice, ActionMarkOverdue},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
