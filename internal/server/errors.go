package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
	"github.com/smallbiznis/roomlease/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

const (
	typeValidation   = "validation_error"
	typeUnauthorized = "unauthorized"
	typeForbidden    = "forbidden"
	typeNotFound     = "not_found"
	typeConflict     = "conflict"
	typeRateLimited  = "too_many_requests"
	typeInternal     = "internal_error"
)

// domainError describes how a sentinel is rendered. Field is only set for
// validation failures.
type domainError struct {
	status  int
	kind    string
	field   string
	message string
}

var domainErrors = []struct {
	err error
	out domainError
}{
	{ErrUnauthorized, domainError{http.StatusUnauthorized, typeUnauthorized, "", "Unauthorized"}},
	{authorization.ErrUnauthorized, domainError{http.StatusUnauthorized, typeUnauthorized, "", "Unauthorized"}},
	{authdomain.ErrInvalidToken, domainError{http.StatusUnauthorized, typeUnauthorized, "", "Invalid or expired token"}},
	{authdomain.ErrInvalidCredentials, domainError{http.StatusUnauthorized, typeUnauthorized, "", "Invalid email or password"}},
	{authorization.ErrForbidden, domainError{http.StatusForbidden, typeForbidden, "", "You do not have permission to perform this action"}},
	{authdomain.ErrTooManyAttempts, domainError{http.StatusTooManyRequests, typeRateLimited, "", "Too many attempts, try again later"}},

	{authdomain.ErrEmailRequired, domainError{http.StatusBadRequest, typeValidation, "email", "Email is required"}},
	{authdomain.ErrInvalidEmail, domainError{http.StatusBadRequest, typeValidation, "email", "Email is invalid"}},
	{authdomain.ErrPasswordRequired, domainError{http.StatusBadRequest, typeValidation, "password", "Password is required"}},
	{authdomain.ErrFullNameRequired, domainError{http.StatusBadRequest, typeValidation, "full_name", "Full name is required"}},
	{authdomain.ErrPhoneRequired, domainError{http.StatusBadRequest, typeValidation, "phone", "Phone is required for Tenant registration"}},
	{authdomain.ErrPasswordTooShort, domainError{http.StatusBadRequest, typeValidation, "password", fmt.Sprintf("Password must be at least %d characters", authdomain.MinPasswordLength)}},
	{authdomain.ErrInvalidRole, domainError{http.StatusBadRequest, typeValidation, "role", "Role must be Admin, Owner or Tenant"}},
	{authdomain.ErrEmailExists, domainError{http.StatusConflict, typeConflict, "", "Email already exists"}},
	{authdomain.ErrUserNotFound, domainError{http.StatusNotFound, typeNotFound, "", "User not found"}},

	{roomdomain.ErrInvalidID, domainError{http.StatusBadRequest, typeValidation, "id", "Invalid room id"}},
	{roomdomain.ErrTitleRequired, domainError{http.StatusBadRequest, typeValidation, "title", "Title is required"}},
	{roomdomain.ErrAddressRequired, domainError{http.StatusBadRequest, typeValidation, "address", "Address is required"}},
	{roomdomain.ErrInvalidPrice, domainError{http.StatusBadRequest, typeValidation, "price", "Price must be greater than zero"}},
	{roomdomain.ErrInvalidArea, domainError{http.StatusBadRequest, typeValidation, "area", "Area must be greater than zero"}},
	{roomdomain.ErrInvalidOwner, domainError{http.StatusBadRequest, typeValidation, "owner_id", "Owner does not exist"}},
	{roomdomain.ErrInvalidPriceRange, domainError{http.StatusBadRequest, typeValidation, "min_price", "Minimum price cannot exceed maximum price"}},
	{roomdomain.ErrNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Room not found"}},
	{roomdomain.ErrNoActiveRoom, domainError{http.StatusNotFound, typeNotFound, "", "You do not have an active room"}},
	{roomdomain.ErrRoomInUse, domainError{http.StatusConflict, typeConflict, "", "Room has contracts or invoices"}},

	{contractdomain.ErrInvalidID, domainError{http.StatusBadRequest, typeValidation, "id", "Invalid id"}},
	{contractdomain.ErrInvalidRent, domainError{http.StatusBadRequest, typeValidation, "monthly_rent", "Monthly rent must be greater than zero"}},
	{contractdomain.ErrInvalidStartDate, domainError{http.StatusBadRequest, typeValidation, "start_date", "Start date must be YYYY-MM-DD"}},
	{contractdomain.ErrNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Contract not found"}},
	{contractdomain.ErrRoomNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Room not found"}},
	{contractdomain.ErrTenantNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Tenant not found"}},
	{contractdomain.ErrNoActiveContract, domainError{http.StatusNotFound, typeNotFound, "", "You do not have an active contract"}},
	{contractdomain.ErrActiveExists, domainError{http.StatusConflict, typeConflict, "", "Tenant already has an active contract in this room"}},
	{contractdomain.ErrTenantHasInvoices, domainError{http.StatusConflict, typeConflict, "", "Tenant has invoices and cannot be deleted"}},

	{tenantdomain.ErrInvalidID, domainError{http.StatusBadRequest, typeValidation, "id", "Invalid tenant id"}},
	{tenantdomain.ErrFullNameRequired, domainError{http.StatusBadRequest, typeValidation, "full_name", "Full name is required"}},
	{tenantdomain.ErrPhoneRequired, domainError{http.StatusBadRequest, typeValidation, "phone", "Phone is required"}},
	{tenantdomain.ErrInvalidEmail, domainError{http.StatusBadRequest, typeValidation, "email", "Email is invalid"}},
	{tenantdomain.ErrNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Tenant not found"}},

	{invoicedomain.ErrInvalidID, domainError{http.StatusBadRequest, typeValidation, "id", "Invalid id"}},
	{invoicedomain.ErrPeriodRequired, domainError{http.StatusBadRequest, typeValidation, "period", "Period is required"}},
	{invoicedomain.ErrInvalidDate, domainError{http.StatusBadRequest, typeValidation, "issue_date", "Dates must be YYYY-MM-DD"}},
	{invoicedomain.ErrDueBeforeIssue, domainError{http.StatusBadRequest, typeValidation, "due_date", "Due date cannot be before issue date"}},
	{invoicedomain.ErrNegativeAmount, domainError{http.StatusBadRequest, typeValidation, "amount", "Amounts and readings cannot be negative"}},
	{invoicedomain.ErrInvalidPaidAmount, domainError{http.StatusBadRequest, typeValidation, "paid_amount", "Paid amount must be greater than zero"}},
	{invoicedomain.ErrContractNotActive, domainError{http.StatusBadRequest, typeValidation, "contract_id", "Contract is not active"}},
	{invoicedomain.ErrNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Invoice not found"}},
	{invoicedomain.ErrContractNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Contract not found"}},
	{invoicedomain.ErrRoomNotFound, domainError{http.StatusNotFound, typeNotFound, "", "Room not found"}},
	{invoicedomain.ErrAlreadyPaid, domainError{http.StatusConflict, typeConflict, "", "Invoice already paid"}},
	{invoicedomain.ErrDuplicateNumber, domainError{http.StatusConflict, typeConflict, "", "Invoice number already exists"}},

	{auditdomain.ErrInvalidTimeRange, domainError{http.StatusBadRequest, typeValidation, "start_at", "start_at must be before end_at"}},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "Invalid request body")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindError converts gin binding failures into validation errors.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		field := toSnake(fe.Field())
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    "invalid_" + field,
			Message: fieldMessage(field, fe),
		})
	}
	return out
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalPayload()
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    typeValidation,
			Message: firstMessage(vErr),
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest, errorPayload{
			Type:    typeValidation,
			Message: "Invalid request",
			Errors:  []ValidationError{{Field: "request", Code: "invalid_request", Message: "Invalid request"}},
		}
	}

	if sentinel, out := lookupDomainError(err); sentinel != nil {
		payload := errorPayload{Type: out.kind, Message: out.message}
		if out.kind == typeValidation {
			payload.Errors = []ValidationError{{Field: out.field, Code: sentinel.Error(), Message: out.message}}
		}
		return out.status, payload
	}

	switch {
	case db.IsDuplicateKeyErr(err), db.IsForeignKeyErr(err):
		return http.StatusConflict, errorPayload{Type: typeConflict, Message: "Conflict"}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Type: typeNotFound, Message: "Not found"}
	default:
		return http.StatusInternalServerError, internalPayload()
	}
}

func lookupDomainError(err error) (error, domainError) {
	for _, entry := range domainErrors {
		if errors.Is(err, entry.err) {
			return entry.err, entry.out
		}
	}
	return nil, domainError{}
}

func internalPayload() errorPayload {
	return errorPayload{Type: typeInternal, Message: "Internal server error"}
}

func firstMessage(v *ValidationErrors) string {
	if v == nil || len(v.Errors) == 0 {
		return "Validation error"
	}
	return v.Errors[0].Message
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// classifyErrorForLog feeds the request logger's error_type and error_code fields.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if sentinel, _ := lookupDomainError(err); sentinel != nil {
		code = sentinel.Error()
	} else if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
