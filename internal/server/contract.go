package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
)

func (s *Server) CreateContract(c *gin.Context) {
	var req contractdomain.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contract, err := s.contractSvc.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusCreated, contract)
}

func (s *Server) GetContract(c *gin.Context) {
	contract, err := s.contractSvc.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, contract)
}

func (s *Server) MyContract(c *gin.Context) {
	contract, err := s.contractSvc.MyContract(c.Request.Context(), callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, contract)
}

// TerminateContract is idempotent; terminating a terminated contract is a no-op.
func (s *Server) TerminateContract(c *gin.Context) {
	if err := s.contractSvc.Terminate(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
