package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/audit/masking"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/identity"
	obscontext "github.com/smallbiznis/roomlease/internal/observability/context"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Authz authorization.Service
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	authz authorization.Service
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		authz: p.Authz,
		repo:  p.Repo,
	}
}

// AuditLog records who did what to which target. Metadata is masked before
// it is stored; the request id, if any, is added for correlation.
func (s *Service) AuditLog(ctx context.Context, tx *gorm.DB, caller identity.CallerIdentity, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	entry := s.newEntry(ctx, caller, action, targetType, targetID, metadata)
	if tx == nil {
		tx = s.db
	}
	if err := s.repo.Insert(ctx, tx, entry); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("actor_role", entry.ActorRole),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) newEntry(ctx context.Context, caller identity.CallerIdentity, action, targetType string, targetID *string, metadata map[string]any) *auditdomain.AuditLog {
	payload := masking.MaskMetadata(metadata)
	if payload == nil {
		payload = map[string]any{}
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorRole:  "Anonymous",
		Action:     action,
		TargetType: strings.TrimSpace(targetType),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if role := caller.Role.String(); role != "" {
		entry.ActorRole = role
	}
	if entry.TargetType == "" {
		entry.TargetType = "unknown"
	}
	if id := caller.ActorID(); id != "" {
		entry.ActorID = &id
	}
	if targetID != nil {
		if id := strings.TrimSpace(*targetID); id != "" {
			entry.TargetID = &id
		}
	}
	return entry
}

func (s *Service) List(ctx context.Context, caller identity.CallerIdentity, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectAuditLog, authorization.ActionView); err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorRole:  req.ActorRole,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Offset:     page.Offset(),
		Limit:      page.Limit(),
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return auditdomain.ListAuditLogResponse{
		PageInfo:  pagination.NewPageInfo(page, total),
		AuditLogs: logs,
	}, nil
}
