package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/identity"
	"github.com/smallbiznis/roomlease/internal/room/domain"
	"github.com/smallbiznis/roomlease/pkg/db"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Authz    authorization.Service
	Scope    authorization.Scope
	AuditSvc auditdomain.Service
	Repo     domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	authz    authorization.Service
	scope    authorization.Scope
	auditSvc auditdomain.Service
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("room.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		authz:    p.Authz,
		scope:    p.Scope,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
	}
}

// Search is open to anonymous callers.
func (s *Service) Search(ctx context.Context, caller identity.CallerIdentity, req domain.SearchRequest) (domain.SearchResponse, error) {
	if !caller.IsAnonymous() {
		if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoom, authorization.ActionView); err != nil {
			return domain.SearchResponse{}, err
		}
	}
	if req.MinPrice != nil && req.MaxPrice != nil && req.MinPrice.GreaterThan(*req.MaxPrice) {
		return domain.SearchResponse{}, domain.ErrInvalidPriceRange
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.Search(ctx, s.db, domain.SearchFilter{
		Keyword:     strings.TrimSpace(req.Keyword),
		IsAvailable: req.IsAvailable,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
	}, page)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	return domain.SearchResponse{
		PageInfo: pagination.NewPageInfo(page, total),
		Items:    domain.ViewsFor(caller.Role, items),
	}, nil
}

// Get is open to anonymous callers. A tenant may only open a room it
// currently rents.
func (s *Service) Get(ctx context.Context, caller identity.CallerIdentity, id string) (domain.RoomView, error) {
	if !caller.IsAnonymous() {
		if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoom, authorization.ActionView); err != nil {
			return domain.RoomView{}, err
		}
	}

	roomID, err := s.parseID(id)
	if err != nil {
		return domain.RoomView{}, err
	}

	room, err := s.repo.FindByID(ctx, s.db, roomID)
	if err != nil {
		return domain.RoomView{}, err
	}
	if room == nil {
		return domain.RoomView{}, domain.ErrNotFound
	}

	if err := s.scope.CanReadRoom(ctx, caller, room.ID); err != nil {
		return domain.RoomView{}, err
	}
	return domain.ViewFor(caller.Role, *room), nil
}

func (s *Service) Create(ctx context.Context, caller identity.CallerIdentity, req domain.CreateRoomRequest) (domain.RoomView, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoom, authorization.ActionCreate); err != nil {
		return domain.RoomView{}, err
	}

	fields, err := validateFields(req.Title, req.Address, req)
	if err != nil {
		return domain.RoomView{}, err
	}

	ownerID, err := s.resolveOwner(ctx, req.OwnerID, caller.UserID)
	if err != nil {
		return domain.RoomView{}, err
	}
	if ownerID == 0 {
		return domain.RoomView{}, domain.ErrInvalidOwner
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	room := domain.Room{
		ID:          s.genID.Generate(),
		Title:       fields.title,
		Description: trimmedOrNil(req.Description),
		Address:     fields.address,
		Price:       req.Price,
		Area:        req.Area,
		IsAvailable: isAvailable,
		OwnerID:     ownerID,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &room); err != nil {
		return domain.RoomView{}, err
	}

	targetID := room.ID.String()
	_ = s.auditSvc.AuditLog(ctx, nil, caller, auditdomain.ActionRoomCreate, auditdomain.TargetRoom, &targetID, map[string]any{
		"title":    room.Title,
		"price":    room.Price.String(),
		"owner_id": room.OwnerID.String(),
	})

	return domain.ViewFor(caller.Role, room), nil
}

func (s *Service) Update(ctx context.Context, caller identity.CallerIdentity, id string, req domain.UpdateRoomRequest) (domain.RoomView, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoom, authorization.ActionUpdate); err != nil {
		return domain.RoomView{}, err
	}

	roomID, err := s.parseID(id)
	if err != nil {
		return domain.RoomView{}, err
	}

	fields, err := validateFields(req.Title, req.Address, domain.CreateRoomRequest{Price: req.Price, Area: req.Area})
	if err != nil {
		return domain.RoomView{}, err
	}

	// Zero keeps the current owner.
	ownerID, err := s.resolveOwner(ctx, req.OwnerID, 0)
	if err != nil {
		return domain.RoomView{}, err
	}

	var updated domain.Room
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.repo.FindByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if room == nil {
			return domain.ErrNotFound
		}

		if ownerID != 0 {
			room.OwnerID = ownerID
		}
		now := s.clock.Now().UTC()
		room.Title = fields.title
		room.Description = trimmedOrNil(req.Description)
		room.Address = fields.address
		room.Price = req.Price
		room.Area = req.Area
		if req.IsAvailable != nil {
			room.IsAvailable = *req.IsAvailable
		}
		room.UpdatedAt = &now

		if err := s.repo.Update(ctx, tx, room); err != nil {
			return err
		}
		updated = *room
		return nil
	})
	if err != nil {
		return domain.RoomView{}, err
	}

	targetID := updated.ID.String()
	_ = s.auditSvc.AuditLog(ctx, nil, caller, auditdomain.ActionRoomUpdate, auditdomain.TargetRoom, &targetID, map[string]any{
		"title":        updated.Title,
		"price":        updated.Price.String(),
		"is_available": updated.IsAvailable,
		"owner_id":     updated.OwnerID.String(),
	})

	return domain.ViewFor(caller.Role, updated), nil
}

// Delete refuses to remove a room that contracts or invoices still reference.
func (s *Service) Delete(ctx context.Context, caller identity.CallerIdentity, id string) error {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoom, authorization.ActionDelete); err != nil {
		return err
	}

	roomID, err := s.parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.repo.FindByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if room == nil {
			return domain.ErrNotFound
		}

		refs, err := s.repo.CountReferences(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return domain.ErrRoomInUse
		}

		if err := s.repo.Delete(ctx, tx, roomID); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrRoomInUse
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	targetID := roomID.String()
	_ = s.auditSvc.AuditLog(ctx, nil, caller, auditdomain.ActionRoomDelete, auditdomain.TargetRoom, &targetID, nil)
	return nil
}

// MyRoom returns the room of the caller's most recent active contract.
func (s *Service) MyRoom(ctx context.Context, caller identity.CallerIdentity) (domain.RoomView, error) {
	if err := s.authz.Authorize(ctx, caller, authorization.ObjectRoom, authorization.ActionViewOwn); err != nil {
		return domain.RoomView{}, err
	}

	filter, err := s.scope.ActiveContractIDs(ctx, caller, nil)
	if err != nil {
		return domain.RoomView{}, err
	}
	if len(filter.IDs) == 0 {
		return domain.RoomView{}, domain.ErrNoActiveRoom
	}

	room, err := s.repo.FindByContractID(ctx, s.db, filter.IDs[0])
	if err != nil {
		return domain.RoomView{}, err
	}
	if room == nil {
		return domain.RoomView{}, domain.ErrNoActiveRoom
	}
	return domain.ViewFor(caller.Role, *room), nil
}

type validatedFields struct {
	title   string
	address string
}

func validateFields(title, address string, req domain.CreateRoomRequest) (validatedFields, error) {
	fields := validatedFields{
		title:   strings.TrimSpace(title),
		address: strings.TrimSpace(address),
	}
	if fields.title == "" {
		return validatedFields{}, domain.ErrTitleRequired
	}
	if fields.address == "" {
		return validatedFields{}, domain.ErrAddressRequired
	}
	if !req.Price.IsPositive() {
		return validatedFields{}, domain.ErrInvalidPrice
	}
	if req.Area <= 0 {
		return validatedFields{}, domain.ErrInvalidArea
	}
	return fields, nil
}

// resolveOwner returns the owner named by raw, or fallback when raw is blank.
// A non-zero result always names an existing user.
func (s *Service) resolveOwner(ctx context.Context, raw *string, fallback snowflake.ID) (snowflake.ID, error) {
	ownerID := fallback
	if raw != nil && strings.TrimSpace(*raw) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*raw))
		if err != nil || parsed == 0 {
			return 0, domain.ErrInvalidOwner
		}
		ownerID = parsed
	}
	if ownerID == 0 {
		return 0, nil
	}

	exists, err := s.repo.OwnerExists(ctx, s.db, ownerID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.ErrInvalidOwner
	}
	return ownerID, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
