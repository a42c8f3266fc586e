package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
)

// ContractStatus represents contract lifecycle states. TERMINATED is final.
type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusTerminated ContractStatus = "TERMINATED"
)

// ActiveIndexName is the partial unique index on (room_id, tenant_id)
// restricted to ACTIVE rows.
const ActiveIndexName = "ux_contracts_active_room_tenant"

type Contract struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID    `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	RoomID       snowflake.ID    `gorm:"column:room_id;not null;index" json:"room_id"`
	MonthlyRent  decimal.Decimal `gorm:"column:monthly_rent;type:decimal(18,2);not null" json:"monthly_rent"`
	StartDate    time.Time       `gorm:"column:start_date;type:date;not null;index:idx_contracts_status_start,priority:2" json:"start_date"`
	EndDate      *time.Time      `gorm:"column:end_date;type:date" json:"end_date,omitempty"`
	Status       ContractStatus  `gorm:"column:status;type:varchar(16);not null;index:idx_contracts_status_start,priority:1" json:"status"`
	TerminatedAt *time.Time      `gorm:"column:terminated_at" json:"terminated_at,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null" json:"created_at"`

	Tenant *tenantdomain.Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
	Room   *roomdomain.Room     `gorm:"foreignKey:RoomID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Contract) TableName() string { return "contracts" }

func (c Contract) IsActive() bool {
	return c.Status == ContractStatusActive
}
