package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
)

type SearchRequest struct {
	pagination.Pagination
	Keyword     string           `form:"keyword"`
	IsAvailable *bool            `form:"is_available"`
	MinPrice    *decimal.Decimal `form:"-"`
	MaxPrice    *decimal.Decimal `form:"-"`
}

type SearchResponse struct {
	pagination.PageInfo
	Items []RoomView `json:"items"`
}

type CreateRoomRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Address     string          `json:"address"`
	Price       decimal.Decimal `json:"price"`
	Area        float64         `json:"area"`
	IsAvailable *bool           `json:"is_available"`
	OwnerID     *string         `json:"owner_id"`
}

type UpdateRoomRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Address     string          `json:"address"`
	Price       decimal.Decimal `json:"price"`
	Area        float64         `json:"area"`
	IsAvailable *bool           `json:"is_available"`
	// OwnerID reassigns the room; blank keeps the current owner.
	OwnerID     *string         `json:"owner_id"`
}

type Service interface {
	Search(ctx context.Context, caller identity.CallerIdentity, req SearchRequest) (SearchResponse, error)
	Get(ctx context.Context, caller identity.CallerIdentity, id string) (RoomView, error)
	Create(ctx context.Context, caller identity.CallerIdentity, req CreateRoomRequest) (RoomView, error)
	Update(ctx context.Context, caller identity.CallerIdentity, id string, req UpdateRoomRequest) (RoomView, error)
	Delete(ctx context.Context, caller identity.CallerIdentity, id string) error
	MyRoom(ctx context.Context, caller identity.CallerIdentity) (RoomView, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("room_not_found")
	ErrNoActiveRoom      = errors.New("no_active_room")
	ErrTitleRequired     = errors.New("room_title_required")
	ErrAddressRequired   = errors.New("room_address_required")
	ErrInvalidPrice      = errors.New("room_invalid_price")
	ErrInvalidArea       = errors.New("room_invalid_area")
	ErrInvalidOwner      = errors.New("room_invalid_owner")
	ErrInvalidPriceRange = errors.New("room_invalid_price_range")
	ErrRoomInUse         = errors.New("room_in_use")
)
