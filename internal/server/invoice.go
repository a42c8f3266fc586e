package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusCreated, invoice)
}

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.RoomID = strings.TrimSpace(req.RoomID)

	invoices, err := s.invoiceSvc.List(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, invoices)
}

func (s *Server) GetInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, invoice)
}

func (s *Server) MyInvoices(c *gin.Context) {
	invoices, err := s.invoiceSvc.MyInvoices(c.Request.Context(), callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, invoices)
}

// PayInvoice accepts an empty body; the full amount is recorded then.
func (s *Server) PayInvoice(c *gin.Context) {
	var req invoicedomain.PayInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Pay(c.Request.Context(), callerFrom(c), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, invoice)
}
