package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nightlife_order/config"
	"nightlife_order/database"
	"nightlife_order/feed"
	"nightlife_order/handler"
	"nightlife_order/helper"
	"nightlife_order/lifecycle"
	"nightlife_order/logging"
	"nightlife_order/ordering"
	"nightlife_order/repository"
	"nightlife_order/resolver"
	"nightlife_order/router"
	"nightlife_order/upsell"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	logSvc, err := logging.New(logging.Options{
		Service:       "nightlife_order",
		Path:          settings.LogPath,
		Level:         settings.LogLevel,
		FlushInterval: settings.LogFlushInterval,
		MaxBuffered:   settings.LogMaxBuffered,
	})
	if err != nil {
		return err
	}
	defer logSvc.Close()
	logger := logSvc.Entry("main")

	loc, err := settings.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(settings, logSvc.Entry("database"))
	if err != nil {
		return err
	}
	if settings.SeedData {
		database.SeedData(db, loc, logSvc.Entry("seed"))
	}
	store := repository.New(db)

	rdb := redis.NewClient(&redis.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword})
	defer rdb.Close()

	hub := feed.NewHub(logSvc.Entry("feed"))
	var pub feed.Publisher = hub
	switch settings.FeedTransport {
	case "redis":
		broker := feed.NewRedisBroker(rdb, "order-changes", hub, logSvc.Entry("feed"))
		go runBroker(ctx, broker.Run, logger)
		pub = broker
	case "kafka":
		// every instance needs its own group to see every change
		group := settings.KafkaGroup + "-" + uuid.NewString()[:8]
		broker := feed.NewKafkaBroker(settings.KafkaBrokers, settings.KafkaTopic, group, hub, logSvc.Entry("feed"))
		defer broker.Close()
		go runBroker(ctx, broker.Run, logger)
		pub = broker
	}

	pairings, err := upsell.LoadTable(settings.PairingFile)
	if err != nil {
		return err
	}
	menu := repository.NewCachedMenu(store, rdb, settings.MenuCacheTTL, logSvc.Entry("menu"))

	pool, err := pgxpool.New(ctx, settings.PostgresURL())
	if err != nil {
		return fmt.Errorf("pgx pool: %w", err)
	}
	defer pool.Close()
	repair := repository.NewOrphanRepair(pool, settings.OrphanGraceAge, pub, logSvc.Entry("repair"))
	repairScheduler, err := helper.StartOrphanRepair(repair, settings.OrphanRepairEvery, logSvc.Entry("repair"))
	if err != nil {
		return err
	}
	defer repairScheduler.Shutdown()
	closer, err := helper.StartEventCloser(store, settings.EventCloseSpec, loc, logSvc.Entry("events"))
	if err != nil {
		return err
	}
	defer closer.Stop()

	h := &handler.Handler{
		Store: store,
		Resolver: resolver.New(store, resolver.Options{
			Location:          loc,
			UpcomingWindow:    settings.UpcomingWindow,
			DemoMode:          settings.DemoMode,
			DemoIdentifiers:   settings.NormalizedDemoIdentifiers(),
			DemoTableFallback: settings.DemoTableFallback,
			Logger:            logSvc.Entry("resolver"),
		}),
		Menu:      menu,
		MenuCache: menu,
		Orders: ordering.NewService(store, pub, ordering.Options{
			Location:   loc,
			DemoMode:   settings.DemoMode,
			PriceDrift: settings.PriceDrift,
			Logger:     logSvc.Entry("ordering"),
		}),
		Lifecycle: lifecycle.NewService(store, pub, logSvc.Entry("lifecycle")),
		Pairings:  pairings,
		Hub:       hub,
		Publisher: pub,
		Secret:    []byte(settings.JWTSecret),
		TokenTTL:  settings.TokenTTL,
		Log:       logSvc.Entry("http"),
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  settings.RequestTimeout,
		WriteTimeout: settings.RequestTimeout,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Authorization, Accept",
		MaxAge:       600,
	}))
	router.SetupRoutes(app, h)

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(":" + settings.Port)
	}()
	logger.WithField("port", settings.Port).Info("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func runBroker(ctx context.Context, run func(context.Context) error, logger *log.Entry) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("feed broker stopped")
	}
}
