package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records one mutation or state transition.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorRole  string            `gorm:"column:actor_role;type:varchar(16);not null" json:"actor_role"`
	ActorID    *string           `gorm:"column:actor_id;type:varchar(32)" json:"actor_id,omitempty"`
	Action     string            `gorm:"column:action;type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"column:target_type;type:varchar(32);not null;index:idx_audit_logs_target,priority:1" json:"target_type"`
	TargetID   *string           `gorm:"column:target_id;type:varchar(32);index:idx_audit_logs_target,priority:2" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorRole  string
	StartAt    *time.Time
	EndAt      *time.Time
	Offset     int
	Limit      int
}

const (
	TargetRoom     = "room"
	TargetTenant   = "tenant"
	TargetContract = "contract"
	TargetInvoice  = "invoice"
	TargetUser     = "user"
)

const (
	ActionUserRegister      = "user.register"
	ActionRoomCreate        = "room.create"
	ActionRoomUpdate        = "room.update"
	ActionRoomDelete        = "room.delete"
	ActionTenantCreate      = "tenant.create"
	ActionTenantDelete      = "tenant.delete"
	ActionContractOpen      = "contract.open"
	ActionContractTerminate = "contract.terminate"
	ActionInvoiceCreate     = "invoice.create"
	ActionInvoicePay        = "invoice.pay"
	ActionInvoiceOverdue    = "invoice.overdue"
)
