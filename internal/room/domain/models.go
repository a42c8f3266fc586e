package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
	"github.com/smallbiznis/roomlease/internal/identity"
)

type Room struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Description *string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Address     string          `gorm:"column:address;type:varchar(300);not null" json:"address"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null;index:idx_rooms_available_price,priority:2" json:"price"`
	Area        float64         `gorm:"column:area;not null" json:"area"`
	IsAvailable bool            `gorm:"column:is_available;not null;index:idx_rooms_available_price,priority:1" json:"is_available"`
	OwnerID     snowflake.ID    `gorm:"column:owner_id;not null;index" json:"owner_id"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedAt   *time.Time      `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at,omitempty"`

	Owner *authdomain.User `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Room) TableName() string { return "rooms" }

// RoomView is the response shape of a room. OwnerID is withheld from
// anonymous and tenant callers.
type RoomView struct {
	ID          snowflake.ID    `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Address     string          `json:"address"`
	Price       decimal.Decimal `json:"price"`
	Area        float64         `json:"area"`
	IsAvailable bool            `json:"is_available"`
	OwnerID     *snowflake.ID   `json:"owner_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

func ViewFor(role identity.Role, room Room) RoomView {
	view := RoomView{
		ID:          room.ID,
		Title:       room.Title,
		Description: room.Description,
		Address:     room.Address,
		Price:       room.Price,
		Area:        room.Area,
		IsAvailable: room.IsAvailable,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
	switch role {
	case identity.RoleAdmin, identity.RoleOwner:
		ownerID := room.OwnerID
		view.OwnerID = &ownerID
	}
	return view
}

// ViewsFor projects a page of rooms for role, skipping nil entries.
func ViewsFor(role identity.Role, rooms []*Room) []RoomView {
	views := make([]RoomView, 0, len(rooms))
	for _, room := range rooms {
		if room != nil {
			views = append(views, ViewFor(role, *room))
		}
	}
	return views
}
