package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, typeForbidden, ""},
		{"anonymous", fmt.Errorf("room view: %w", authorization.ErrUnauthorized), http.StatusUnauthorized, typeUnauthorized, ""},
		{"throttled", authdomain.ErrTooManyAttempts, http.StatusTooManyRequests, typeRateLimited, ""},
		{"phone", authdomain.ErrPhoneRequired, http.StatusBadRequest, typeValidation, "Phone is required for Tenant registration"},
		{"email taken", authdomain.ErrEmailExists, http.StatusConflict, typeConflict, "Email already exists"},
		{"active contract", contractdomain.ErrActiveExists, http.StatusConflict, typeConflict, "Tenant already has an active contract in this room"},
		{"inactive contract", invoicedomain.ErrContractNotActive, http.StatusBadRequest, typeValidation, "Contract is not active"},
		{"paid", invoicedomain.ErrAlreadyPaid, http.StatusConflict, typeConflict, "Invoice already paid"},
		{"room missing", roomdomain.ErrNotFound, http.StatusNotFound, typeNotFound, "Room not found"},
		{"unique violation", gorm.ErrDuplicatedKey, http.StatusConflict, typeConflict, ""},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), http.StatusConflict, typeConflict, ""},
		{"record", gorm.ErrRecordNotFound, http.StatusNotFound, typeNotFound, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, typeInternal, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if payload.Type != tc.kind {
				t.Fatalf("expected type %s, got %s", tc.kind, payload.Type)
			}
			if tc.message != "" && payload.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, payload.Message)
			}
		})
	}
}

func TestMapErrorValidationCarriesField(t *testing.T) {
	status, payload := mapError(fmt.Errorf("create: %w", roomdomain.ErrInvalidPrice))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if len(payload.Errors) != 1 {
		t.Fatalf("expected one field error, got %+v", payload.Errors)
	}
	got := payload.Errors[0]
	if got.Field != "price" || got.Code != "room_invalid_price" {
		t.Fatalf("unexpected field error %+v", got)
	}
}

func TestBindErrorFromValidator(t *testing.T) {
	type query struct {
		PageSize int    `validate:"min=1"`
		MinPrice string `validate:"required"`
	}
	err := validator.New().Struct(query{})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	vErr := asValidationErrors(bindError(err))
	if vErr == nil || len(vErr.Errors) != 2 {
		t.Fatalf("expected two field errors, got %+v", vErr)
	}
	if vErr.Errors[0].Field != "page_size" || vErr.Errors[1].Field != "min_price" {
		t.Fatalf("unexpected fields %+v", vErr.Errors)
	}
	if vErr.Errors[1].Message != "min_price is required" {
		t.Fatalf("unexpected message %q", vErr.Errors[1].Message)
	}

	if asValidationErrors(bindError(errors.New("EOF"))).Errors[0].Field != "request" {
		t.Fatal("non-validator errors map to the request field")
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(fmt.Errorf("pay: %w", invoicedomain.ErrAlreadyPaid))
	if kind != typeConflict || code != "invoice_already_paid" {
		t.Fatalf("got %s/%s", kind, code)
	}

	kind, code = classifyErrorForLog(errors.New("boom"))
	if kind != typeInternal || code != typeInternal {
		t.Fatalf("got %s/%s", kind, code)
	}
}
