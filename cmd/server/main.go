package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/bar-table-reservation/internal/cache"
	"github.com/iliyamo/bar-table-reservation/internal/config"
	"github.com/iliyamo/bar-table-reservation/internal/database"
	"github.com/iliyamo/bar-table-reservation/internal/handler"
	"github.com/iliyamo/bar-table-reservation/internal/logging"
	"github.com/iliyamo/bar-table-reservation/internal/middleware"
	"github.com/iliyamo/bar-table-reservation/internal/notify"
	"github.com/iliyamo/bar-table-reservation/internal/queue"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
	"github.com/iliyamo/bar-table-reservation/internal/router"
	"github.com/iliyamo/bar-table-reservation/internal/service"
)

// stores is what the selected storage backend provides to the rest of
// the process.
type stores struct {
	backend service.Backend
	configs service.ConfigStore
	staff   handler.StaffStore
	ping    func(ctx context.Context) error
	close   func() error
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("storage init failed")
	}
	defer st.close()

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}
	barCache := cache.NewRedisCache(rdb, cacheCfg.Prefix, cacheCfg.ConfigTTL, log)
	configs := service.ConfigStore(st.configs)
	if cacheCfg.Enabled {
		configs = cache.NewCachedConfigs(st.configs, barCache)
	}

	notifiers := notify.Multi{notify.Log{Logger: log}}
	if cfg.RabbitURL != "" {
		pub := notify.NewRabbitPublisher(cfg.RabbitURL, cfg.NotifyQueue, log)
		defer pub.Close()
		notifiers = append(notifiers, pub)
		if cfg.NotifyConsumer {
			go func() {
				if err := queue.StartNotificationConsumer(ctx, cfg.RabbitURL, cfg.NotifyQueue, log); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("notification consumer stopped")
				}
			}()
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		kp := notify.NewKafkaPublisher(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer kp.Close()
		notifiers = append(notifiers, kp)
	}

	svc := service.NewService(service.Deps{
		Backend:     st.backend,
		Configs:     configs,
		Notifier:    notifiers,
		Invalidator: barCache,
		Logger:      log,
		MaxAttempts: cfg.BookingMaxAttempts,
	})
	if cfg.ReminderWindow > 0 {
		go svc.RunReminders(ctx, cfg.ReminderInterval, cfg.ReminderWindow)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	rh, th, ch := handler.NewReservationHandler(svc), handler.NewTableHandler(svc), handler.NewConfigHandler(svc)
	router.RegisterRoutes(e, st.ping)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.staff), cfg.JWTSecret)
	router.RegisterPublic(e, router.Public{
		Reservations: rh,
		Tables:       th,
		Configs:      ch,
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:        middleware.NewResponseCache(cacheCfg, rdb),
	})
	router.RegisterStaff(e, rh, th, ch, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.Store}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// openStores selects the storage backend.  With STORE_FALLBACK=memory a
// MySQL outage is served from an in-process store for bars that store
// holds; every other request fails with a storage error.
func openStores(ctx context.Context, cfg config.Config, log *logrus.Logger) (stores, error) {
	if cfg.Store == config.StoreMemory {
		mem := repository.NewMemoryStore()
		return stores{
			backend: service.SingleBackend{Store: mem},
			configs: mem,
			staff:   mem,
			ping:    mem.Ping,
			close:   func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(initCtx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	primary := repository.NewMySQLStore(db)
	if n, err := primary.BackfillLegacy(initCtx); err != nil {
		log.WithError(err).Warn("legacy reservation backfill failed")
	} else if n > 0 {
		log.WithField("rows", n).Info("legacy reservations backfilled")
	}

	st := stores{
		backend: service.SingleBackend{Store: primary},
		configs: primary,
		staff:   repository.NewStaffRepo(db),
		ping:    primary.Ping,
		close:   db.Close,
	}
	if cfg.StoreFallback == config.StoreMemory {
		mem := repository.NewMemoryStore()
		st.backend = service.NewFallbackBackend(primary, primary.Ping, mem, log)
		st.configs = service.NewFallbackConfigs(primary, mem, log)
		log.Info("memory fallback enabled for storage outages")
	}
	return st, nil
}
