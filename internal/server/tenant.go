package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
)

func (s *Server) ListTenants(c *gin.Context) {
	tenants, err := s.tenantSvc.List(c.Request.Context(), callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, tenants)
}

func (s *Server) CreateTenant(c *gin.Context) {
	var req tenantdomain.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenant, err := s.tenantSvc.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusCreated, tenant)
}

func (s *Server) GetTenant(c *gin.Context) {
	detail, err := s.tenantSvc.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, detail)
}

// DeleteTenant terminates the tenant's contracts before removing the profile.
func (s *Server) DeleteTenant(c *gin.Context) {
	if err := s.contractSvc.DeleteTenant(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
