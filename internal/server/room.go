package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	"github.com/smallbiznis/roomlease/pkg/db/pagination"
)

type searchRoomsQuery struct {
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	Keyword     string `form:"keyword" binding:"omitempty,max=200"`
	IsAvailable string `form:"is_available" binding:"omitempty,oneof=true false 1 0"`
	MinPrice    string `form:"min_price" binding:"omitempty,numeric"`
	MaxPrice    string `form:"max_price" binding:"omitempty,numeric"`
}

func (s *Server) SearchRooms(c *gin.Context) {
	var query searchRoomsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	isAvailable, err := parseOptionalBool(query.IsAvailable)
	if err != nil {
		AbortWithError(c, newValidationError("is_available", "invalid_is_available", "is_available must be true or false"))
		return
	}
	minPrice, err := parseOptionalDecimal(query.MinPrice)
	if err != nil {
		AbortWithError(c, newValidationError("min_price", "invalid_min_price", "min_price must be a number"))
		return
	}
	maxPrice, err := parseOptionalDecimal(query.MaxPrice)
	if err != nil {
		AbortWithError(c, newValidationError("max_price", "invalid_max_price", "max_price must be a number"))
		return
	}

	resp, err := s.roomSvc.Search(c.Request.Context(), callerFrom(c), roomdomain.SearchRequest{
		Pagination: pagination.Pagination{
			Page:     query.Page,
			PageSize: query.PageSize,
		},
		Keyword:     strings.TrimSpace(query.Keyword),
		IsAvailable: isAvailable,
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (s *Server) GetRoom(c *gin.Context) {
	room, err := s.roomSvc.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, room)
}

func (s *Server) MyRoom(c *gin.Context) {
	room, err := s.roomSvc.MyRoom(c.Request.Context(), callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, room)
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req roomdomain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	room, err := s.roomSvc.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusCreated, room)
}

func (s *Server) UpdateRoom(c *gin.Context) {
	var req roomdomain.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	room, err := s.roomSvc.Update(c.Request.Context(), callerFrom(c), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, room)
}

func (s *Server) DeleteRoom(c *gin.Context) {
	if err := s.roomSvc.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListRoomTenants(c *gin.Context) {
	tenants, err := s.contractSvc.ListRoomTenants(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, tenants)
}

func (s *Server) AddTenantToRoom(c *gin.Context) {
	var req contractdomain.AddTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contract, err := s.contractSvc.AddTenantToRoom(c.Request.Context(), callerFrom(c), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusCreated, contract)
}

func (s *Server) RemoveTenantFromRoom(c *gin.Context) {
	err := s.contractSvc.RemoveTenantFromRoom(c.Request.Context(), callerFrom(c), c.Param("id"), c.Param("tenantId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListRoomInvoices(c *gin.Context) {
	invoices, err := s.invoiceSvc.ListRoomInvoices(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, invoices)
}
