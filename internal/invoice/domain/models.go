// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Invoice bills one period of a contract: metered utilities, services and rent.
type Invoice struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	RoomID        snowflake.ID `gorm:"column:room_id;not null;index:idx_invoices_room_status,priority:1" json:"room_id"`
	ContractID    snowflake.ID `gorm:"column:contract_id;not null;index" json:"contract_id"`
	InvoiceNumber string       `gorm:"column:invoice_number;type:varchar(50);not null;uniqueIndex" json:"invoice_number"`
	IssueDate     time.Time    `gorm:"column:issue_date;type:date;not null" json:"issue_date"`
	DueDate       time.Time    `gorm:"column:due_date;type:date;not null;index" json:"due_date"`
	Period        string       `gorm:"column:period;type:varchar(50);not null" json:"period"`

	ElectricOldReading  decimal.NullDecimal `gorm:"column:electric_old_reading;type:decimal(18,2)" json:"electric_old_reading"`
	ElectricNewReading  decimal.NullDecimal `gorm:"column:electric_new_reading;type:decimal(18,2)" json:"electric_new_reading"`
	ElectricConsumption decimal.NullDecimal `gorm:"column:electric_consumption;type:decimal(18,2)" json:"electric_consumption"`
	ElectricUnitPrice   decimal.Decimal     `gorm:"column:electric_unit_price;type:decimal(18,2);not null" json:"electric_unit_price"`
	ElectricCost        decimal.Decimal     `gorm:"column:electric_cost;type:decimal(18,2);not null" json:"electric_cost"`

	WaterOldReading  decimal.NullDecimal `gorm:"column:water_old_reading;type:decimal(18,2)" json:"water_old_reading"`
	WaterNewReading  decimal.NullDecimal `gorm:"column:water_new_reading;type:decimal(18,2)" json:"water_new_reading"`
	WaterConsumption decimal.NullDecimal `gorm:"column:water_consumption;type:decimal(18,2)" json:"water_consumption"`
	WaterUnitPrice   decimal.Decimal     `gorm:"column:water_unit_price;type:decimal(18,2);not null" json:"water_unit_price"`
	WaterCost        decimal.Decimal     `gorm:"column:water_cost;type:decimal(18,2);not null" json:"water_cost"`

	ServiceCost       decimal.Decimal `gorm:"column:service_cost;type:decimal(18,2);not null" json:"service_cost"`
	ServiceUnitPrice  decimal.Decimal `gorm:"column:service_unit_price;type:decimal(18,2);not null" json:"service_unit_price"`
	RoomRent          decimal.Decimal `gorm:"column:room_rent;type:decimal(18,2);not null" json:"room_rent"`
	RoomRentUnitPrice decimal.Decimal `gorm:"column:room_rent_unit_price;type:decimal(18,2);not null" json:"room_rent_unit_price"`

	// Deposit is informational and never part of Amount.
	Deposit decimal.NullDecimal `gorm:"column:deposit;type:decimal(18,2)" json:"deposit"`

	Amount     decimal.Decimal     `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	PaidAmount decimal.NullDecimal `gorm:"column:paid_amount;type:decimal(18,2)" json:"paid_amount"`
	PaidDate   *time.Time          `gorm:"column:paid_date" json:"paid_date,omitempty"`
	Status     InvoiceStatus       `gorm:"column:status;type:varchar(16);not null;index:idx_invoices_room_status,priority:2" json:"status"`
	Notes      *string             `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt  time.Time           `gorm:"column:created_at;not null" json:"created_at"`

	Room     *roomdomain.Room         `gorm:"foreignKey:RoomID;constraint:OnDelete:RESTRICT" json:"-"`
	Contract *contractdomain.Contract `gorm:"foreignKey:ContractID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Total is the sum billed for the period. Deposit is excluded.
func (i Invoice) Total() decimal.Decimal {
	return i.ElectricCost.Add(i.WaterCost).Add(i.ServiceCost).Add(i.RoomRent)
}

// Payable reports whether the invoice can still be settled.
func (i Invoice) Payable() bool {
	return i.Status == InvoiceStatusPending || i.Status == InvoiceStatusOverdue
}
