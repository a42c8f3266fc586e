package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string     `form:"action"`
	TargetType string     `form:"target_type"`
	TargetID   string     `form:"target_id"`
	ActorRole  string     `form:"actor_role"`
	StartAt    *time.Time `form:"start_at" time_format:"2006-01-02T15:04:05Z07:00"`
	EndAt      *time.Time `form:"end_at" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// AuditLog writes an entry. Pass tx to join the caller's transaction, or nil.
	AuditLog(ctx context.Context, tx *gorm.DB, caller identity.CallerIdentity, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, caller identity.CallerIdentity, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
