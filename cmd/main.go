package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/config"
	"github.com/Dosada05/league-engine/db"
	"github.com/Dosada05/league-engine/handlers"
	"github.com/Dosada05/league-engine/metrics"
	"github.com/Dosada05/league-engine/notify"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/Dosada05/league-engine/routes"
	"github.com/Dosada05/league-engine/services"
	"github.com/Dosada05/league-engine/storage"
	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
)

const (
	dbConnectTimeout = 5 * time.Second
	shutdownTimeout  = 15 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "league-engine",
		Usage: "round-robin leagues with playoffs and result approval",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
				slog.SetDefault(logger)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "memory", Usage: "keep leagues in process memory instead of postgres"},
					&cli.BoolFlag{Name: "migrate", Usage: "apply pending migrations before serving"},
				},
				Action: func(c *cli.Context) error {
					return serve(c.Context, logger, c.Bool("memory"), c.Bool("migrate"))
				},
			},
			{
				Name:  "migrate",
				Usage: "database migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply every pending migration",
						Action: func(c *cli.Context) error {
							return withDatabase(logger, func(conn *sql.DB) error {
								return db.MigrateUp(conn, logger)
							})
						},
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
						},
						Action: func(c *cli.Context) error {
							return withDatabase(logger, func(conn *sql.DB) error {
								return db.MigrateDown(conn, c.Int("steps"), logger)
							})
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func withDatabase(logger *slog.Logger, fn func(conn *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	conn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func serve(parent context.Context, logger *slog.Logger, inMemory, migrateFirst bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Bool("memory", inMemory))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repositories.Store
	if inMemory {
		store = repositories.NewMemoryStore().Store()
		logger.Warn("using in-memory store; data is lost on restart")
	} else {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}
		dbConn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		logger.Info("database connection established")

		if migrateFirst {
			if err := db.MigrateUp(dbConn, logger); err != nil {
				return err
			}
		}
		store = repositories.NewPostgresStore(dbConn)
	}

	m := metrics.New()

	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	var publisher notify.Publisher = notify.NewLogPublisher(logger)
	if cfg.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				logger.Error("failed to drain NATS connection", slog.Any("error", err))
			}
		}()
		publisher = notify.NewNATSPublisher(nc)
		logger.Info("NATS publisher connected", slog.String("url", nc.ConnectedUrl()))
	}
	dispatcher := notify.NewDispatcher(publisher, cfg.NotificationBuffer, logger, m)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	var archiver *storage.Archiver
	switch {
	case cfg.R2.Storage().Enabled():
		objects, err := storage.NewCloudflareR2Store(ctx, cfg.R2.Storage())
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 store: %w", err)
		}
		archiver = storage.NewArchiver(objects, cfg.ArchivePrefix)
		logger.Info("Cloudflare R2 archive store initialized", slog.String("bucket", cfg.R2.BucketName))
	case inMemory:
		archiver = storage.NewArchiver(storage.NewMemoryStore(cfg.R2.PublicBaseURL), cfg.ArchivePrefix)
	default:
		logger.Info("final bracket archiving disabled")
	}

	deps := services.Deps{
		Store:           store,
		Logger:          logger,
		Notifier:        dispatcher,
		Broadcaster:     wsHub,
		Archiver:        archiver,
		Metrics:         m,
		DefaultSettings: cfg.League.Settings(),
	}
	if len(cfg.Players) > 0 {
		deps.Profiles = services.StaticDirectory(cfg.Players)
	}

	leagueService := services.NewLeagueService(deps)
	standingsService := services.NewStandingsService(deps)
	playoffService := services.NewPlayoffService(deps)
	scheduleService := services.NewScheduleService(deps, standingsService)
	resultService := services.NewResultService(deps, standingsService, playoffService)
	bracketService := services.NewBracketService(deps)
	logger.Info("Services initialized")

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		League: handlers.NewLeagueHandler(
			leagueService,
			scheduleService,
			standingsService,
			playoffService,
			bracketService,
			resultService,
		),
		Match:     handlers.NewMatchHandler(resultService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, leagueService, cfg.CORSAllowedOrigins, logger),
	}, routes.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        m.Handler(),
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		}
	}

	dispatcher.Close()
	<-dispatcherDone
	logger.Info("server shutdown complete")
	return nil
}
