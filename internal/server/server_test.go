package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	authrepository "github.com/smallbiznis/roomlease/internal/auth/repository"
	authservice "github.com/smallbiznis/roomlease/internal/auth/service"
	"github.com/smallbiznis/roomlease/internal/auth/token"
	"github.com/smallbiznis/roomlease/internal/config"
	contractrepository "github.com/smallbiznis/roomlease/internal/contract/repository"
	contractservice "github.com/smallbiznis/roomlease/internal/contract/service"
	invoicerepository "github.com/smallbiznis/roomlease/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/roomlease/internal/invoice/service"
	"github.com/smallbiznis/roomlease/internal/observability"
	roomrepository "github.com/smallbiznis/roomlease/internal/room/repository"
	roomservice "github.com/smallbiznis/roomlease/internal/room/service"
	"github.com/smallbiznis/roomlease/internal/servicetest"
	tenantrepository "github.com/smallbiznis/roomlease/internal/tenant/repository"
	tenantservice "github.com/smallbiznis/roomlease/internal/tenant/service"
)

type testServer struct {
	t      *testing.T
	env    *servicetest.Env
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := servicetest.New(t)
	tokens, err := token.NewManager(config.Config{
		AuthJWTSecret: "test-secret",
		AuthJWTIssuer: "roomlease",
		AuthJWTTTL:    time.Hour,
	}, env.Clock)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	roomRepo := roomrepository.Provide()
	tenantRepo := tenantrepository.Provide()

	engine := NewEngine(config.Config{Environment: "test"}, observability.Config{Environment: "test"}, nil)
	NewServer(ServerParams{
		Gin: engine,
		Authsvc: authservice.New(authservice.Params{
			DB: env.DB, Log: env.Log, GenID: env.GenID, Clock: env.Clock,
			Tokens: tokens, AuditSvc: env.Audit,
			Repo: authrepository.Provide(), TenantRepo: tenantRepo,
		}),
		RoomSvc: roomservice.New(roomservice.Params{
			DB: env.DB, Log: env.Log, GenID: env.GenID, Clock: env.Clock,
			Authz: env.Authz, Scope: env.Scope, AuditSvc: env.Audit, Repo: roomRepo,
		}),
		ContractSvc: contractservice.New(contractservice.Params{
			DB: env.DB, Log: env.Log, GenID: env.GenID, Clock: env.Clock,
			Authz: env.Authz, Scope: env.Scope, AuditSvc: env.Audit,
			Repo: contractrepository.Provide(), RoomRepo: roomRepo, TenantRepo: tenantRepo,
		}),
		InvoiceSvc: invoiceservice.NewService(invoiceservice.ServiceParam{
			DB: env.DB, Log: env.Log, GenID: env.GenID, Clock: env.Clock,
			Policy: config.NewStaticInvoicePolicy(config.DefaultInvoicePolicy()),
			Authz:  env.Authz, Scope: env.Scope, AuditSvc: env.Audit,
			Repo: invoicerepository.Provide(),
		}),
		TenantSvc: tenantservice.New(tenantservice.Params{
			DB: env.DB, Log: env.Log, GenID: env.GenID, Clock: env.Clock,
			Authz: env.Authz, AuditSvc: env.Audit, Repo: tenantRepo,
		}),
		AuditSvc: env.Audit,
	})

	return &testServer{t: t, env: env, engine: engine}
}

func (ts *testServer) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp := httptest.NewRecorder()
	ts.engine.ServeHTTP(resp, req)
	return resp
}

// register creates an account over HTTP and returns its token and profile.
func (ts *testServer) register(email, role string, phone *string) (string, map[string]any) {
	ts.t.Helper()
	body := map[string]any{
		"email":     email,
		"password":  "secret1",
		"full_name": email,
		"role":      role,
	}
	if phone != nil {
		body["phone"] = *phone
	}
	resp := ts.do(http.MethodPost, "/api/auth/register", "", body)
	expectStatus(ts.t, resp, http.StatusCreated)
	data := dataObject(ts.t, resp)
	return data["token"].(string), data
}

func (ts *testServer) owner() string {
	ts.t.Helper()
	tok, _ := ts.register("owner@x.com", "Owner", nil)
	return tok
}

func (ts *testServer) tenant(email string) (string, string) {
	ts.t.Helper()
	phone := "0900000001"
	tok, profile := ts.register(email, "Tenant", &phone)
	return tok, profile["tenant_id"].(string)
}

func (ts *testServer) createRoom(bearer, title string) string {
	ts.t.Helper()
	resp := ts.do(http.MethodPost, "/api/rooms", bearer, map[string]any{
		"title":   title,
		"address": "1 Main Street",
		"price":   1000000,
		"area":    20,
	})
	expectStatus(ts.t, resp, http.StatusCreated)
	return dataObject(ts.t, resp)["id"].(string)
}

func (ts *testServer) createContract(bearer, tenantID, roomID string) string {
	ts.t.Helper()
	resp := ts.do(http.MethodPost, "/api/contracts", bearer, map[string]any{
		"tenant_id":    tenantID,
		"room_id":      roomID,
		"monthly_rent": 1000000,
	})
	expectStatus(ts.t, resp, http.StatusCreated)
	return dataObject(ts.t, resp)["id"].(string)
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}

func dataObject(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode data: %v: %s", err, resp.Body.String())
	}
	return payload.Data
}

func dataList(t *testing.T, resp *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var payload struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode list: %v: %s", err, resp.Body.String())
	}
	return payload.Data
}

func errorBody(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v: %s", err, resp.Body.String())
	}
	return payload.Error
}

func decimalField(t *testing.T, obj map[string]any, key string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(obj[key]))
	if err != nil {
		t.Fatalf("field %s is not a decimal: %v", key, obj[key])
	}
	return d
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)

	phone := "123"
	tok, registered := ts.register("A@X.com", "Tenant", &phone)
	if registered["email"] != "a@x.com" {
		t.Fatalf("expected normalized email, got %v", registered["email"])
	}
	tenantID, ok := registered["tenant_id"].(string)
	if !ok || tenantID == "" {
		t.Fatalf("expected tenant id, got %v", registered["tenant_id"])
	}

	resp := ts.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "a@x.com", "password": "secret1"})
	expectStatus(t, resp, http.StatusOK)
	login := dataObject(t, resp)
	if login["user_id"] != registered["user_id"] {
		t.Fatalf("login user %v, registered %v", login["user_id"], registered["user_id"])
	}

	resp = ts.do(http.MethodGet, "/api/auth/me", tok, nil)
	expectStatus(t, resp, http.StatusOK)
	me := dataObject(t, resp)
	if me["tenant_id"] != tenantID {
		t.Fatalf("me tenant %v, want %s", me["tenant_id"], tenantID)
	}
	if _, ok := me["token"]; ok {
		t.Fatal("me must not carry a token")
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.register("dup@x.com", "Owner", nil)

	cases := []struct {
		name    string
		body    any
		status  int
		field   string
		message string
	}{
		{
			name:    "tenant without phone",
			body:    map[string]any{"email": "t@x.com", "password": "secret1", "full_name": "T", "role": "Tenant"},
			status:  http.StatusBadRequest,
			field:   "phone",
			message: "Phone is required for Tenant registration",
		},
		{
			name:    "short password",
			body:    map[string]any{"email": "t@x.com", "password": "abc", "full_name": "T", "role": "Owner"},
			status:  http.StatusBadRequest,
			field:   "password",
			message: "Password must be at least 6 characters",
		},
		{
			name:   "unknown role",
			body:   map[string]any{"email": "t@x.com", "password": "secret1", "full_name": "T", "role": "Landlord"},
			status: http.StatusBadRequest,
			field:  "role",
		},
		{
			name:   "malformed body",
			body:   `{"email":`,
			status: http.StatusBadRequest,
			field:  "request",
		},
		{
			name:    "duplicate email",
			body:    map[string]any{"email": "DUP@x.com", "password": "secret1", "full_name": "D", "role": "Owner"},
			status:  http.StatusConflict,
			message: "Email already exists",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := ts.do(http.MethodPost, "/api/auth/register", "", tc.body)
			expectStatus(t, resp, tc.status)
			payload := errorBody(t, resp)
			if tc.message != "" && payload.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, payload.Message)
			}
			if tc.field != "" {
				if len(payload.Errors) == 0 || payload.Errors[0].Field != tc.field {
					t.Fatalf("expected field %q, got %+v", tc.field, payload.Errors)
				}
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.register("owner@x.com", "Owner", nil)

	resp := ts.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "owner@x.com", "password": "wrong-pass"})
	expectStatus(t, resp, http.StatusUnauthorized)
	if got := errorBody(t, resp).Type; got != typeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", got)
	}
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	ts := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/rooms/my-room"},
		{http.MethodPost, "/api/rooms"},
		{http.MethodGet, "/api/contracts/my-contract"},
		{http.MethodGet, "/api/invoices/my-invoices"},
		{http.MethodGet, "/api/tenants"},
		{http.MethodGet, "/api/audit-logs"},
	}
	for _, p := range paths {
		resp := ts.do(p.method, p.path, "", nil)
		expectStatus(t, resp, http.StatusUnauthorized)

		resp = ts.do(p.method, p.path, "not-a-token", nil)
		expectStatus(t, resp, http.StatusUnauthorized)
	}
}

func TestRoomViewsDependOnRole(t *testing.T) {
	ts := newTestServer(t)
	ownerTok := ts.owner()
	roomID := ts.createRoom(ownerTok, "Studio")
	tenantTok, _ := ts.tenant("bob@x.com")

	resp := ts.do(http.MethodGet, "/api/rooms", "", nil)
	expectStatus(t, resp, http.StatusOK)
	page := dataObject(t, resp)
	items := page["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 room, got %d", len(items))
	}
	if _, ok := items[0].(map[string]any)["owner_id"]; ok {
		t.Fatal("anonymous listing must not expose owner_id")
	}
	if page["total_items"].(float64) != 1 {
		t.Fatalf("expected total_items 1, got %v", page["total_items"])
	}

	resp = ts.do(http.MethodGet, "/api/rooms/"+roomID, ownerTok, nil)
	expectStatus(t, resp, http.StatusOK)
	if _, ok := dataObject(t, resp)["owner_id"]; !ok {
		t.Fatal("owner view must expose owner_id")
	}

	resp = ts.do(http.MethodGet, "/api/rooms/"+roomID, tenantTok, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = ts.do(http.MethodGet, "/api/rooms/"+roomID, "", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = ts.do(http.MethodPost, "/api/rooms", tenantTok, map[string]any{
		"title": "Nope", "address": "x", "price": 1, "area": 1,
	})
	expectStatus(t, resp, http.StatusForbidden)
}

func TestSearchRoomsRejectsBadQuery(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		query string
		field string
	}{
		{"min_price=abc", "min_price"},
		{"max_price=1e", "max_price"},
		{"is_available=maybe", "is_available"},
	}
	for _, tc := range cases {
		resp := ts.do(http.MethodGet, "/api/rooms?"+tc.query, "", nil)
		expectStatus(t, resp, http.StatusBadRequest)
		payload := errorBody(t, resp)
		if len(payload.Errors) == 0 || payload.Errors[0].Field != tc.field {
			t.Fatalf("%s: expected field %q, got %+v", tc.query, tc.field, payload.Errors)
		}
	}

	resp := ts.do(http.MethodGet, "/api/rooms?min_price=5&max_price=1", "", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSearchRoomsFallsBackToDefaultPaging(t *testing.T) {
	ts := newTestServer(t)

	for _, query := range []string{"page=-1&page_size=-5", "page=0&page_size=0"} {
		resp := ts.do(http.MethodGet, "/api/rooms?"+query, "", nil)
		expectStatus(t, resp, http.StatusOK)
		data := dataObject(t, resp)
		if data["page"] != float64(1) || data["page_size"] != float64(10) {
			t.Fatalf("%s: expected page 1 size 10, got page=%v page_size=%v", query, data["page"], data["page_size"])
		}
	}
}

func TestAddTenantTwiceConflicts(t *testing.T) {
	ts := newTestServer(t)
	ownerTok := ts.owner()
	roomID := ts.createRoom(ownerTok, "Studio")
	_, tenantID := ts.tenant("bob@x.com")
	ts.createContract(ownerTok, tenantID, roomID)

	resp := ts.do(http.MethodPost, "/api/rooms/"+roomID+"/tenants", ownerTok, map[string]any{"tenant_id": tenantID})
	expectStatus(t, resp, http.StatusConflict)
	if got := errorBody(t, resp).Message; got != "Tenant already has an active contract in this room" {
		t.Fatalf("unexpected message %q", got)
	}

	resp = ts.do(http.MethodGet, "/api/rooms/"+roomID+"/tenants", ownerTok, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := len(dataList(t, resp)); got != 1 {
		t.Fatalf("expected 1 room tenant, got %d", got)
	}
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ownerTok := ts.owner()
	roomID := ts.createRoom(ownerTok, "Studio")
	tenantTok, tenantID := ts.tenant("bob@x.com")
	contractID := ts.createContract(ownerTok, tenantID, roomID)

	resp := ts.do(http.MethodPut, "/api/contracts/"+contractID+"/terminate", ownerTok, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = ts.do(http.MethodPut, "/api/contracts/"+contractID+"/terminate", ownerTok, nil)
	expectStatus(t, resp, http.StatusNoContent)

	resp = ts.do(http.MethodPost, "/api/invoices", ownerTok, map[string]any{
		"contract_id": contractID,
		"period":      "2024-03",
		"room_rent":   1000000,
	})
	expectStatus(t, resp, http.StatusBadRequest)
	if got := errorBody(t, resp).Message; got != "Contract is not active" {
		t.Fatalf("unexpected message %q", got)
	}

	contractID = ts.createContract(ownerTok, tenantID, roomID)
	resp = ts.do(http.MethodPost, "/api/invoices", ownerTok, map[string]any{
		"contract_id": contractID,
		"period":      "2024-03",
		"room_rent":   1000000,
	})
	expectStatus(t, resp, http.StatusCreated)
	invoice := dataObject(t, resp)
	invoiceID := invoice["id"].(string)
	if !decimalField(t, invoice, "amount").Equal(decimal.NewFromInt(1000000)) {
		t.Fatalf("expected amount 1000000, got %v", invoice["amount"])
	}

	resp = ts.do(http.MethodGet, "/api/invoices/my-invoices", tenantTok, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := len(dataList(t, resp)); got != 1 {
		t.Fatalf("expected 1 tenant invoice, got %d", got)
	}

	resp = ts.do(http.MethodPut, "/api/invoices/"+invoiceID+"/pay", ownerTok, map[string]any{"paid_amount": 500000})
	expectStatus(t, resp, http.StatusForbidden)

	resp = ts.do(http.MethodPut, "/api/invoices/"+invoiceID+"/pay", tenantTok, map[string]any{"paid_amount": 500000})
	expectStatus(t, resp, http.StatusOK)
	paid := dataObject(t, resp)
	if paid["status"] != "PAID" {
		t.Fatalf("expected PAID, got %v", paid["status"])
	}
	if !decimalField(t, paid, "paid_amount").Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("expected paid_amount 500000, got %v", paid["paid_amount"])
	}

	resp = ts.do(http.MethodPut, "/api/invoices/"+invoiceID+"/pay", tenantTok, nil)
	expectStatus(t, resp, http.StatusConflict)
	if got := errorBody(t, resp).Message; got != "Invoice already paid" {
		t.Fatalf("unexpected message %q", got)
	}

	resp = ts.do(http.MethodGet, "/api/invoices?room_id="+roomID, ownerTok, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := len(dataList(t, resp)); got != 1 {
		t.Fatalf("expected 1 room invoice, got %d", got)
	}
}

func TestCrossTenantReadsAreForbidden(t *testing.T) {
	ts := newTestServer(t)
	ownerTok := ts.owner()
	roomID := ts.createRoom(ownerTok, "Studio")
	_, bobID := ts.tenant("bob@x.com")
	malloryTok, _ := ts.tenant("mallory@x.com")
	contractID := ts.createContract(ownerTok, bobID, roomID)

	resp := ts.do(http.MethodGet, "/api/contracts/"+contractID, malloryTok, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = ts.do(http.MethodGet, "/api/contracts/12345", malloryTok, nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = ts.do(http.MethodGet, "/api/contracts/my-contract", malloryTok, nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = ts.do(http.MethodGet, "/api/rooms/"+roomID+"/invoices", malloryTok, nil)
	expectStatus(t, resp, http.StatusForbidden)
}

func TestTenantAdministration(t *testing.T) {
	ts := newTestServer(t)
	ownerTok := ts.owner()

	resp := ts.do(http.MethodPost, "/api/tenants", ownerTok, map[string]any{"full_name": "Carol", "phone": "0911"})
	expectStatus(t, resp, http.StatusCreated)
	tenantID := dataObject(t, resp)["id"].(string)

	resp = ts.do(http.MethodPost, "/api/tenants", ownerTok, map[string]any{"full_name": "Carol"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = ts.do(http.MethodGet, "/api/tenants", ownerTok, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := len(dataList(t, resp)); got != 1 {
		t.Fatalf("expected 1 tenant, got %d", got)
	}

	resp = ts.do(http.MethodGet, "/api/tenants/"+tenantID, ownerTok, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = ts.do(http.MethodDelete, "/api/tenants/"+tenantID, ownerTok, nil)
	expectStatus(t, resp, http.StatusNoContent)

	resp = ts.do(http.MethodGet, "/api/tenants/"+tenantID, ownerTok, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAuditLogsListing(t *testing.T) {
	ts := newTestServer(t)
	ownerTok := ts.owner()
	ts.createRoom(ownerTok, "Studio")
	tenantTok, _ := ts.tenant("bob@x.com")

	resp := ts.do(http.MethodGet, "/api/audit-logs?page_size=1", ownerTok, nil)
	expectStatus(t, resp, http.StatusOK)
	var payload struct {
		Data     []map[string]any `json:"data"`
		PageInfo map[string]any   `json:"page_info"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data) != 1 || payload.PageInfo["has_next"] != true {
		t.Fatalf("unexpected page: %s", resp.Body.String())
	}

	resp = ts.do(http.MethodGet, "/api/audit-logs?actor_role=Landlord", ownerTok, nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = ts.do(http.MethodGet, "/api/audit-logs?start_at=yesterday", ownerTok, nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = ts.do(http.MethodGet, "/api/audit-logs", tenantTok, nil)
	expectStatus(t, resp, http.StatusForbidden)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/health", "", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = ts.do(http.MethodGet, "/api/nothing-here", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}
