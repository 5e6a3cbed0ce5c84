// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"legisdash/internal/adapter/events"
	"legisdash/internal/adapter/social"
	"legisdash/internal/adapter/storage"
	"legisdash/internal/config"
	"legisdash/internal/domain/dataset"
	"legisdash/internal/logging"
	"legisdash/internal/metrics"
	"legisdash/internal/server"
	"legisdash/internal/service/dashboard"
	"legisdash/internal/service/ingest"
)

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	collector := metrics.New("legisdash")

	// Optional engagement snapshot database
	var engagement dataset.EngagementSource
	if cfg.Database.Enabled {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()
		engagement = storage.NewEngagementStore(db, cfg.Database.Table)
	}

	// Optional event bus
	var natsConn *nats.Conn
	var publisher dataset.EventPublisher = events.Nop{}
	var eventsSubject string
	if cfg.NATS.Enabled {
		natsConn, err = initNATS(cfg.NATS, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to NATS")
		}
		defer natsConn.Close()
		natsPublisher := events.NewNATSPublisher(natsConn, cfg.NATS.EventsSubject)
		publisher = natsPublisher
		eventsSubject = natsPublisher.Subject()
	}

	// Optional follower refresh
	var followers dataset.FollowerLookup
	if cfg.Twitter.BearerToken != "" {
		lookup, err := social.NewTwitterLookup(social.TwitterConfig{
			BearerToken: cfg.Twitter.BearerToken,
			Host:        cfg.Twitter.Host,
			Timeout:     cfg.Twitter.Timeout,
			BatchSize:   cfg.Twitter.BatchSize,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize X API client")
		}
		followers = lookup
	}

	memo := ingest.NewMemo(cfg.Ingest.CacheEntries, ingest.MemoHooks{
		OnHit:  collector.MemoHit,
		OnMiss: collector.MemoMiss,
	})

	dashboardService := dashboard.NewService(
		memo,
		engagement,
		followers,
		publisher,
		collector,
		log,
		dashboard.Config{
			MaxDatasets:         cfg.Dashboard.MaxDatasets,
			Charset:             cfg.Ingest.Charset,
			LegislatorDelimiter: config.Delimiter(cfg.Ingest.LegislatorDelim),
			PostDelimiter:       config.Delimiter(cfg.Ingest.PostDelim),
			Legislators: dashboard.TopRange{
				Min:     cfg.Dashboard.LegislatorTopMin,
				Max:     cfg.Dashboard.LegislatorTopMax,
				Default: cfg.Dashboard.LegislatorTopInit,
			},
			Posts: dashboard.TopRange{
				Min:     cfg.Dashboard.PostTopMin,
				Max:     cfg.Dashboard.PostTopMax,
				Default: cfg.Dashboard.PostTopInit,
			},
		},
	)

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, server.Deps{
		Dashboard:      dashboardService,
		Metrics:        collector,
		NATS:           natsConn,
		EventsSubject:  eventsSubject,
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
		Log:            log,
	})

	// Start HTTP server
	go func() {
		log.WithFields(logging.Fields{
			"host":     cfg.Server.Host,
			"port":     cfg.Server.Port,
			"database": cfg.Database.Enabled,
			"nats":     cfg.NATS.Enabled,
			"twitter":  followers != nil,
		}).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	log.Info("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, log *logrus.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
