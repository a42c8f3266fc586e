package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/roomlease/internal/audit"
	auditdomain "github.com/smallbiznis/roomlease/internal/audit/domain"
	"github.com/smallbiznis/roomlease/internal/auth"
	authdomain "github.com/smallbiznis/roomlease/internal/auth/domain"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/smallbiznis/roomlease/internal/contract"
	contractdomain "github.com/smallbiznis/roomlease/internal/contract/domain"
	"github.com/smallbiznis/roomlease/internal/invoice"
	invoicedomain "github.com/smallbiznis/roomlease/internal/invoice/domain"
	"github.com/smallbiznis/roomlease/internal/observability"
	obsmiddleware "github.com/smallbiznis/roomlease/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/roomlease/internal/observability/metrics"
	obstracing "github.com/smallbiznis/roomlease/internal/observability/tracing"
	"github.com/smallbiznis/roomlease/internal/ratelimit"
	"github.com/smallbiznis/roomlease/internal/room"
	roomdomain "github.com/smallbiznis/roomlease/internal/room/domain"
	"github.com/smallbiznis/roomlease/internal/tenant"
	tenantdomain "github.com/smallbiznis/roomlease/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authorization.Module,
	audit.Module,
	auth.Module,
	room.Module,
	tenant.Module,
	contract.Module,
	invoice.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(cfg.CORSAllowedOrigins))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP binds the engine to the configured address for the app lifetime.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	authsvc     authdomain.Service
	roomSvc     roomdomain.Service
	contractSvc contractdomain.Service
	invoiceSvc  invoicedomain.Service
	tenantSvc   tenantdomain.Service
	auditSvc    auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Authsvc     authdomain.Service
	RoomSvc     roomdomain.Service
	ContractSvc contractdomain.Service
	InvoiceSvc  invoicedomain.Service
	TenantSvc   tenantdomain.Service
	AuditSvc    auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		authsvc:     p.Authsvc,
		roomSvc:     p.RoomSvc,
		contractSvc: p.ContractSvc,
		invoiceSvc:  p.InvoiceSvc,
		tenantSvc:   p.TenantSvc,
		auditSvc:    p.AuditSvc,
	}

	s.registerAuthRoutes()
	s.registerRoomRoutes()
	s.registerContractRoutes()
	s.registerInvoiceRoutes()
	s.registerTenantRoutes()
	s.registerAuditRoutes()
	s.registerFallback()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerRoomRoutes() {
	rooms := s.engine.Group("/api/rooms")

	rooms.GET("", s.OptionalAuth(), s.SearchRooms)
	rooms.GET("/my-room", s.AuthRequired(), s.MyRoom)
	rooms.GET("/:id", s.OptionalAuth(), s.GetRoom)
	rooms.POST("", s.AuthRequired(), s.CreateRoom)
	rooms.PUT("/:id", s.AuthRequired(), s.UpdateRoom)
	rooms.DELETE("/:id", s.AuthRequired(), s.DeleteRoom)

	// -------- Room tenants --------
	rooms.GET("/:id/tenants", s.AuthRequired(), s.ListRoomTenants)
	rooms.POST("/:id/tenants", s.AuthRequired(), s.AddTenantToRoom)
	rooms.DELETE("/:id/tenants/:tenantId", s.AuthRequired(), s.RemoveTenantFromRoom)

	rooms.GET("/:id/invoices", s.AuthRequired(), s.ListRoomInvoices)
}

func (s *Server) registerContractRoutes() {
	contracts := s.engine.Group("/api/contracts", s.AuthRequired())

	contracts.GET("/my-contract", s.MyContract)
	contracts.POST("", s.CreateContract)
	contracts.GET("/:id", s.GetContract)
	contracts.PUT("/:id/terminate", s.TerminateContract)
}

func (s *Server) registerInvoiceRoutes() {
	invoices := s.engine.Group("/api/invoices", s.AuthRequired())

	invoices.GET("/my-invoices", s.MyInvoices)
	invoices.GET("", s.ListInvoices)
	invoices.POST("", s.CreateInvoice)
	invoices.GET("/:id", s.GetInvoice)
	invoices.PUT("/:id/pay", s.PayInvoice)
}

func (s *Server) registerTenantRoutes() {
	tenants := s.engine.Group("/api/tenants", s.AuthRequired())

	tenants.GET("", s.ListTenants)
	tenants.POST("", s.CreateTenant)
	tenants.GET("/:id", s.GetTenant)
	tenants.DELETE("/:id", s.DeleteTenant)
}

func (s *Server) registerAuditRoutes() {
	s.engine.GET("/api/audit-logs", s.AuthRequired(), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: errorPayload{
			Type:    typeNotFound,
			Message: "Route not found",
		}})
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}
