package server

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	appdomain "github.com/dfund/marketplace/internal/application/domain"
	auditdomain "github.com/dfund/marketplace/internal/audit/domain"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/dfund/marketplace/internal/auth/session"
	"github.com/dfund/marketplace/internal/config"
	"github.com/dfund/marketplace/internal/observability"
	obsmiddleware "github.com/dfund/marketplace/internal/observability/logger"
	obsmetrics "github.com/dfund/marketplace/internal/observability/metrics"
	obstracing "github.com/dfund/marketplace/internal/observability/tracing"
	oppdomain "github.com/dfund/marketplace/internal/opportunity/domain"
	"github.com/dfund/marketplace/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
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

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	validate       *validator.Validate
	authsvc        authdomain.Service
	sessions       *session.Manager
	opportunitySvc oppdomain.Service
	applicationSvc appdomain.Service
	auditSvc       auditdomain.Service
	writeLimiter   *ratelimit.ApplicationWriteLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	Authsvc        authdomain.Service
	Sessions       *session.Manager
	OpportunitySvc oppdomain.Service
	ApplicationSvc appdomain.Service
	AuditSvc       auditdomain.Service
	WriteLimiter   *ratelimit.ApplicationWriteLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics                `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("http.server"),
		validate:       newValidator(),
		authsvc:        p.Authsvc,
		sessions:       p.Sessions,
		opportunitySvc: p.OpportunitySvc,
		applicationSvc: p.ApplicationSvc,
		auditSvc:       p.AuditSvc,
		writeLimiter:   p.WriteLimiter,
		obsMetrics:     p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Opportunities --------
	api.GET("/opportunities", s.ListOpportunities)
	api.GET("/opportunities/user/:userId", s.ListOpportunitiesByOwner)
	api.GET("/opportunities/:id", s.GetOpportunityByID)
	api.POST("/opportunities", s.AuthRequired(), s.CreateOpportunity)
	api.PUT("/opportunities/:id", s.AuthRequired(), s.UpdateOpportunity)
	api.DELETE("/opportunities/:id", s.AuthRequired(), s.DeleteOpportunity)

	// -------- Applications --------
	applications := api.Group("/applications", s.AuthRequired())
	{
		applications.GET("/opportunity/:opportunityId", s.ListApplicationsByOpportunity)
		applications.GET("/user/:userId", s.ListApplicationsByCandidate)
		applications.POST("", s.ApplicationWriteRateLimit(), s.CreateApplication)
		applications.PUT("/:id", s.ApplicationWriteRateLimit(), s.UpdateApplication)
		applications.POST("/:id/submit", s.ApplicationWriteRateLimit(), s.SubmitApplication)
		applications.PUT("/:id/review", s.ReviewApplication)
	}

	api.GET("/me/audit_logs", s.AuthRequired(), s.ListAuditLogs)

	if !s.cfg.IsProduction() {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}
