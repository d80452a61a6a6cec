package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/zone-explorer/internal/clock"
	"github.com/iliyamo/zone-explorer/internal/config"
	"github.com/iliyamo/zone-explorer/internal/database"
	"github.com/iliyamo/zone-explorer/internal/handler"
	"github.com/iliyamo/zone-explorer/internal/logger"
	"github.com/iliyamo/zone-explorer/internal/middleware"
	"github.com/iliyamo/zone-explorer/internal/queue"
	"github.com/iliyamo/zone-explorer/internal/repository"
	"github.com/iliyamo/zone-explorer/internal/router"
	"github.com/iliyamo/zone-explorer/internal/service"
	"github.com/iliyamo/zone-explorer/internal/session"
	"github.com/iliyamo/zone-explorer/internal/utils"
	"github.com/iliyamo/zone-explorer/internal/zone"
)

// srv holds everything a command wires together.  Each load step fills a
// few fields; commands call only the steps they need.
type srv struct {
	cfg   config.Config
	log   *zap.Logger
	clock clock.Clock
	zones *zone.Registry
	db    *sql.DB
	rdb   *redis.Client

	progress  *service.ProgressService
	checkIns  *service.CheckInService
	prizes    *service.PrizeService
	analytics *service.AnalyticsService

	cache *middleware.ResponseCache
	echo  *echo.Echo
}

func (s *srv) loadLogger() error {
	l, err := logger.New(s.cfg.Env)
	if err != nil {
		return err
	}
	s.log = l
	s.clock = clock.NewSystem()
	return nil
}

func (s *srv) loadZones() error {
	reg, err := zone.Load(s.cfg.ZonesFile)
	if err != nil {
		return err
	}
	s.zones = reg
	s.log.Info("zone catalog loaded", zap.Int("zones", reg.Size()), zap.String("file", s.cfg.ZonesFile))
	return nil
}

func (s *srv) loadDatabase(ctx context.Context, migrate bool) error {
	dsn, err := dataSource(s.cfg)
	if err != nil {
		return err
	}
	db, err := database.Open(s.cfg.DBDriver, dsn)
	if err != nil {
		return err
	}
	if migrate {
		if err := database.Migrate(ctx, db, s.cfg.DBDriver); err != nil {
			_ = db.Close()
			return err
		}
	}
	s.db = db
	return nil
}

func (s *srv) loadRedis() {
	s.rdb = config.NewRedisClient(config.LoadRedisConfig(), s.log)
}

func (s *srv) loadServices() {
	visits := repository.NewVisitRepo(s.db)
	entries := repository.NewPrizeRepo(s.db)

	var events service.EventPublisher
	if s.cfg.AMQPEnabled {
		events = queue.NewPublisher(s.cfg.AMQPURL, s.log)
	}

	checkInOpts := []service.CheckInOption{
		service.WithCooldown(s.cfg.CheckinCooldown),
		service.WithCheckInPublisher(events),
		service.WithCheckInLogger(s.log),
	}
	if locker := repository.NewRedisLocker(s.rdb, "zx:lock"); locker != nil {
		checkInOpts = append(checkInOpts, service.WithLocker(locker))
	}

	s.progress = service.NewProgressService(visits, s.zones)
	s.checkIns = service.NewCheckInService(s.zones, visits, s.progress, s.clock, checkInOpts...)
	s.prizes = service.NewPrizeService(entries, visits, s.progress, s.zones, s.clock,
		service.WithTxRunner(repository.NewTxManager(s.db)),
		service.WithPrizePublisher(events),
		service.WithPrizeLogger(s.log),
	)
	s.analytics = service.NewAnalyticsService(visits, s.zones, s.clock)
}

func (s *srv) loadRouter() error {
	hash := s.cfg.AdminPasswordHash
	if hash != "" {
		if err := utils.CheckHash(hash); err != nil {
			return fmt.Errorf("ADMIN_PASSWORD_HASH: %w", err)
		}
	} else {
		h, err := utils.HashPassword(s.cfg.AdminPassword, s.cfg.BcryptCost)
		if err != nil {
			return err
		}
		hash = h
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(s.log))

	sessions, err := session.NewCookieStore([]byte(s.cfg.SessionHashKey), []byte(s.cfg.SessionBlockKey), s.cfg.SessionMaxAge, s.cfg.IsProd())
	if err != nil {
		return err
	}
	rl := config.LoadRateLimitConfig()
	s.cache = middleware.NewResponseCache(config.LoadCacheConfig(), s.rdb, s.log)

	vh := handler.NewVisitorHandler(sessions, s.checkIns, s.progress, s.prizes, s.analytics, s.zones, s.log)
	vh.Timeout = s.cfg.RequestTimeout
	vh.OnChange = func(ctx context.Context) {
		if err := s.cache.Purge(ctx); err != nil {
			s.log.Warn("cache purge failed", zap.Error(err))
		}
	}
	ah := handler.NewAdminHandler(hash, s.cfg.JWTSecret, time.Duration(s.cfg.AdminTokenTTLMin)*time.Minute,
		s.prizes, s.analytics, s.clock, s.log)
	ah.Timeout = s.cfg.RequestTimeout
	ah.SecureCookie = s.cfg.IsProd()

	router.RegisterRoutes(e, s.db)
	router.RegisterVisitor(e, vh, sessions, router.VisitorOptions{
		CheckInLimit: middleware.NewTokenBucket(rl, s.rdb, s.log),
		TestingMode:  s.cfg.TestingMode,
	})
	router.RegisterAdmin(e, ah, s.cfg.JWTSecret, router.AdminOptions{
		LoginLimit: middleware.NewTokenBucket(rl.LoginRateLimit(), s.rdb, s.log),
		Cache:      s.cache.Middleware(),
	})
	if s.cfg.TestingMode {
		s.log.Warn("testing mode: debug routes enabled")
	}
	s.echo = e
	return nil
}

// startServer serves until ctx is cancelled, then shuts down gracefully.
// With AMQP enabled the activity consumer runs alongside.
func (s *srv) startServer(ctx context.Context) error {
	if s.cfg.AMQPEnabled {
		c := queue.NewConsumer(s.cfg.AMQPURL, queue.NewActivityLog(""), s.log)
		go func() { _ = c.Run(ctx) }()
	}

	addr := ":" + s.cfg.Port
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("env", s.cfg.Env))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
