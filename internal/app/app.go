// Package app builds the application context at startup: database, Redis,
// repositories, services, background workers and the HTTP server. Handlers
// receive what they need from here; nothing lives in package globals.
package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/config"
	"github.com/jellyjess/nail-salon/internal/database"
	"github.com/jellyjess/nail-salon/internal/handler"
	"github.com/jellyjess/nail-salon/internal/metrics"
	"github.com/jellyjess/nail-salon/internal/middleware"
	"github.com/jellyjess/nail-salon/internal/notification"
	"github.com/jellyjess/nail-salon/internal/oauth"
	"github.com/jellyjess/nail-salon/internal/payment"
	"github.com/jellyjess/nail-salon/internal/queue"
	"github.com/jellyjess/nail-salon/internal/realtime"
	"github.com/jellyjess/nail-salon/internal/repository"
	"github.com/jellyjess/nail-salon/internal/router"
	"github.com/jellyjess/nail-salon/internal/service"
	"github.com/jellyjess/nail-salon/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	sessionSweep    = time.Hour
)

// App owns every long-lived dependency of the server.
type App struct {
	Cfg      config.Config
	Log      *zap.Logger
	DB       *sql.DB
	Redis    *redis.Client
	Echo     *echo.Echo
	Hub      *realtime.Hub
	Metrics  *metrics.Metrics
	Bookings *service.BookingService

	users     *repository.UserRepo
	sessions  *repository.SessionRepo
	worker    *notification.Worker
	publisher *queue.Publisher
	consumer  *queue.Consumer
}

// New connects to MySQL, applies migrations, seeds the admin account and
// wires the HTTP routes. Optional integrations (SMTP, RabbitMQ, PayPal,
// Google, S3) are only built when configured.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if err := database.Migrate(database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, true), log); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}

	a := &App{
		Cfg:      cfg,
		Log:      log,
		DB:       db,
		Redis:    config.NewRedisClient(cfg.Redis),
		Hub:      realtime.NewHub(cfg.CORSOrigins, log.Named("realtime")),
		Metrics:  metrics.New(),
		users:    repository.NewUserRepo(db),
		sessions: repository.NewSessionRepo(db),
	}
	if a.Redis == nil {
		log.Warn("redis unavailable, using in-process rate limiting and no response cache")
	}

	if err := a.seedAdmin(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, log := a.Cfg, a.Log

	slots := repository.NewSlotRepo(a.DB)
	bookings := repository.NewBookingRepo(a.DB)
	services := repository.NewServiceRepo(a.DB)

	deps := service.BookingDeps{
		Slots:       slots,
		Bookings:    bookings,
		Services:    services,
		Live:        a.Hub,
		Metrics:     a.Metrics,
		Location:    cfg.Location(),
		AutoConfirm: cfg.AutoConfirm,
	}

	if cfg.Email.Enabled() && cfg.Worker.Enabled {
		mailer, err := notification.NewSMTPMailer(cfg.Email)
		if err != nil {
			return err
		}
		a.worker = notification.NewWorker(bookings, services, slots, mailer,
			notification.NewComposer(cfg.Location(), cfg.DepositPence),
			cfg.Worker, a.Metrics, log.Named("email"))
		deps.Mail = a.worker
	} else {
		log.Warn("email worker disabled", zap.Bool("smtp_configured", cfg.Email.Enabled()))
	}

	if cfg.AMQPURL != "" {
		a.publisher = queue.NewPublisher(cfg.AMQPURL, log.Named("amqp"))
		deps.Events = a.publisher
		if a.worker != nil {
			w := a.worker
			a.consumer = queue.NewConsumer(cfg.AMQPURL, log.Named("amqp"), func(ctx context.Context, ev queue.BookingConfirmedEvent) error {
				log.Debug("booking confirmed event", zap.Uint64("booking_id", ev.BookingID))
				w.Wake()
				return nil
			})
		}
	}

	if cfg.PayPal.Enabled() {
		deps.Payments = payment.NewPayPal(ctx, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.BaseURL)
	}

	a.Bookings = service.NewBookingService(a.DB, deps, log.Named("booking"))

	var google oauth.IdentityProvider
	if cfg.Google.Enabled() {
		google = oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	}

	var uploader handler.Uploader
	if cfg.Storage.Enabled() {
		store, err := storage.NewS3Store(ctx, cfg.Storage, log.Named("storage"))
		if err != nil {
			return err
		}
		uploader = storage.NewImageUploader(store, cfg.Storage.MaxImageWidth)
	}

	cache := middleware.NewResponseCache(cfg.Cache, a.Redis, log)
	limit := middleware.NewTokenBucket(cfg.RateLimit, a.Redis, log)

	e := echo.New()
	router.Setup(e, cfg.CORSOrigins, a.Metrics, log)
	router.RegisterRoutes(e, a.DB, a.Metrics)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, a.users, a.sessions, google, log), cfg.JWTSecret, limit)
	router.RegisterCatalog(e, handler.NewCatalogHandler(services, repository.NewGalleryRepo(a.DB), repository.NewProductRepo(a.DB), cache, log), cfg.JWTSecret, cache)
	router.RegisterSlots(e, handler.NewSlotHandler(a.Bookings, log), a.Hub, cfg.JWTSecret)
	router.RegisterBookings(e, handler.NewBookingHandler(a.Bookings, bookings, log), cfg.JWTSecret)
	router.RegisterForms(e, handler.NewFormHandler(repository.NewWaitlistRepo(a.DB), repository.NewContactRepo(a.DB), log), cfg.JWTSecret, limit)
	router.RegisterUploads(e, handler.NewUploadHandler(uploader, cfg.Storage.MaxUploadBytes, log), cfg.JWTSecret)
	a.Echo = e
	return nil
}

// Run serves HTTP and runs the background workers until ctx is cancelled,
// then shuts everything down within shutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}
	if a.publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.publisher.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sweepSessions(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.Cfg.Port
		a.Log.Info("listening", zap.String("addr", addr), zap.String("env", a.Cfg.Env))
		if err := a.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("http shutdown", zap.Error(err))
	}
	if a.worker != nil {
		_ = a.worker.Stop(shutdownCtx)
	}
	cancel()
	wg.Wait()
	return runErr
}

// Close releases connections. It is safe to call after Run returns.
func (a *App) Close() {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func (a *App) sweepSessions(ctx context.Context) {
	t := time.NewTicker(sessionSweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.sessions.DeleteExpired(ctx, time.Now())
			if err != nil {
				a.Log.Warn("session cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				a.Log.Debug("removed stale sessions", zap.Int64("count", n))
			}
		}
	}
}
