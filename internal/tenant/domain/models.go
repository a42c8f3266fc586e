package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
)

// Tenant is a renter profile. It may be linked to a login account.
type Tenant struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID    *snowflake.ID `gorm:"column:user_id;uniqueIndex" json:"user_id,omitempty"`
	FullName  string        `gorm:"column:full_name;type:varchar(200);not null" json:"full_name"`
	Phone     string        `gorm:"column:phone;type:varchar(50);not null" json:"phone"`
	Email     *string       `gorm:"column:email;type:varchar(255);index" json:"email,omitempty"`
	Address   *string       `gorm:"column:address;type:varchar(500)" json:"address,omitempty"`
	CreatedAt time.Time     `gorm:"column:created_at;not null" json:"created_at"`

	User *authdomain.User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Tenant) TableName() string { return "tenants" }
