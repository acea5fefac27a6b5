package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/mailroom/internal/clock"
	"github.com/smallbiznis/mailroom/internal/config"
	"github.com/smallbiznis/mailroom/internal/contact"
	"github.com/smallbiznis/mailroom/internal/fee"
	feedomain "github.com/smallbiznis/mailroom/internal/fee/domain"
	"github.com/smallbiznis/mailroom/internal/followup"
	followupdomain "github.com/smallbiznis/mailroom/internal/followup/domain"
	"github.com/smallbiznis/mailroom/internal/mailitem"
	mailitemdomain "github.com/smallbiznis/mailroom/internal/mailitem/domain"
	"github.com/smallbiznis/mailroom/internal/notification"
	notificationdomain "github.com/smallbiznis/mailroom/internal/notification/domain"
	"github.com/smallbiznis/mailroom/internal/observability"
	obslogger "github.com/smallbiznis/mailroom/internal/observability/logger"
	obstracing "github.com/smallbiznis/mailroom/internal/observability/tracing"
	"github.com/smallbiznis/mailroom/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	contact.Module,
	mailitem.Module,
	fee.Module,
	followup.Module,
	notification.Module,
	email.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
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
			log.Info("http server listening", zap.String("addr", addr))
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	clock           clock.Clock
	feeSvc          feedomain.Service
	followUpSvc     followupdomain.Service
	mailItemSvc     mailitemdomain.Service
	notificationSvc notificationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Clock           clock.Clock
	FeeSvc          feedomain.Service
	FollowUpSvc     followupdomain.Service
	MailItemSvc     mailitemdomain.Service
	NotificationSvc notificationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		clock:           p.Clock,
		feeSvc:          p.FeeSvc,
		followUpSvc:     p.FollowUpSvc,
		mailItemSvc:     p.MailItemSvc,
		notificationSvc: p.NotificationSvc,
	}

	svc.registerHealthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/ready", s.Ready)
}

// Ready reports whether the database answers a ping.
func (s *Server) Ready(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(TenantRequired())

	// -------- Mail items --------
	api.POST("/mail-items", s.IntakeMailItem)
	api.GET("/mail-items/:id", s.GetMailItemByID)
	api.PATCH("/mail-items/:id/type", s.ChangeMailItemType)
	api.PATCH("/mail-items/:id/status", s.UpdateMailItemStatus)

	// -------- Fees --------
	api.POST("/fees/recalculate", s.RecalculateFees)
	api.GET("/fees/:id", s.GetFeeByID)
	api.POST("/fees/:id/waive", s.WaiveFee)
	api.POST("/fees/:id/pay", s.MarkFeePaid)
	api.POST("/fees/:id/recalculate", s.RecalculateFee)

	// -------- Follow-ups --------
	api.GET("/follow-ups", s.ListFollowUps)
	api.GET("/follow-ups/:contact_id", s.GetContactFollowUp)
	api.POST("/follow-ups/:contact_id/notify", s.SendFollowUp)
	api.GET("/follow-ups/:contact_id/notifications", s.ListNotificationHistory)

	// -------- Templates --------
	api.POST("/templates/preview", s.PreviewTemplate)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
