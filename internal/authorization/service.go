package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/identity"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service is the role gate. It answers whether a role may perform an action
// on a kind of object, independent of any particular row.
type Service interface {
	Authorize(ctx context.Context, caller identity.CallerIdentity, object string, action string) error
}

// ContractFilter restricts a listing to contracts visible to the caller.
// Unrestricted callers see every row; otherwise only IDs are visible.
type ContractFilter struct {
	Unrestricted bool
	IDs          []snowflake.ID
}

func (f ContractFilter) Empty() bool {
	return !f.Unrestricted && len(f.IDs) == 0
}

// Scope answers row-level visibility for tenant callers. Callers check that
// the row exists first so absent rows surface as not found.
type Scope interface {
	ActiveContractIDs(ctx context.Context, caller identity.CallerIdentity, roomID *snowflake.ID) (ContractFilter, error)
	CanReadRoom(ctx context.Context, caller identity.CallerIdentity, roomID snowflake.ID) error
	CanReadContract(ctx context.Context, caller identity.CallerIdentity, contractID snowflake.ID) error
	CanReadInvoice(ctx context.Context, caller identity.CallerIdentity, invoiceID snowflake.ID) error
}
