package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/roomlease/internal/identity"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
)

type TenantView struct {
	ID       snowflake.ID  `json:"id"`
	UserID   *snowflake.ID `json:"user_id,omitempty"`
	FullName string        `json:"full_name"`
	Phone    string        `json:"phone"`
	Email    *string       `json:"email,omitempty"`
	Address  *string       `json:"address,omitempty"`
}

// ContractView is a contract with its tenant and room, shaped for the caller.
type ContractView struct {
	ID           snowflake.ID         `json:"id"`
	TenantID     snowflake.ID         `json:"tenant_id"`
	RoomID       snowflake.ID         `json:"room_id"`
	MonthlyRent  decimal.Decimal      `json:"monthly_rent"`
	StartDate    time.Time            `json:"start_date"`
	EndDate      *time.Time           `json:"end_date,omitempty"`
	Status       ContractStatus       `json:"status"`
	TerminatedAt *time.Time           `json:"terminated_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	Tenant       *TenantView          `json:"tenant,omitempty"`
	Room         *roomdomain.RoomView `json:"room,omitempty"`
}

func ViewFor(role identity.Role, contract Contract) ContractView {
	view := ContractView{
		ID:           contract.ID,
		TenantID:     contract.TenantID,
		RoomID:       contract.RoomID,
		MonthlyRent:  contract.MonthlyRent,
		StartDate:    contract.StartDate,
		EndDate:      contract.EndDate,
		Status:       contract.Status,
		TerminatedAt: contract.TerminatedAt,
		CreatedAt:    contract.CreatedAt,
	}
	if contract.Tenant != nil {
		tenant := TenantViewFor(role, *contract.Tenant)
		view.Tenant = &tenant
	}
	if contract.Room != nil {
		room := roomdomain.ViewFor(role, *contract.Room)
		view.Room = &room
	}
	return view
}

// TenantViewFor hides the linked login account from tenant callers.
func TenantViewFor(role identity.Role, tenant tenantdomain.Tenant) TenantView {
	view := TenantView{
		ID:       tenant.ID,
		FullName: tenant.FullName,
		Phone:    tenant.Phone,
		Email:    tenant.Email,
		Address:  tenant.Address,
	}
	if role != identity.RoleTenant {
		view.UserID = tenant.UserID
	}
	return view
}

// RoomTenant is an active occupant of a room.
type RoomTenant struct {
	ID          snowflake.ID    `json:"id"`
	FullName    string          `json:"full_name"`
	Phone       string          `json:"phone"`
	Email       *string         `json:"email,omitempty"`
	Address     *string         `json:"address,omitempty"`
	ContractID  snowflake.ID    `json:"contract_id"`
	StartDate   time.Time       `json:"start_date"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}
