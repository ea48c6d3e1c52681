package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/advisor"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/clickhouse"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/config"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	grpcserver "github.com/Billy-Davies-2/fantasy-draft-assistant/internal/grpc"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/handlers"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/mcptools"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/mocks"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

var version = "dev"

// eventUpstream is the NATS flavour carrying draft events between instances
type eventUpstream interface {
	pubsub.Upstream
	SubscribeJetStream(consumerName string, handler func(pubsub.Event) error) error
	Ping(ctx context.Context) error
	Close()
}

// analyticsSink stores simulation batches and live picks
type analyticsSink interface {
	draft.Analytics
	RecordPickEvent(ctx context.Context, ev pubsub.Event) error
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.InitLevel(cfg.LogLevel)

	logger.Info("Starting fantasy draft assistant", "version", version, "environment", cfg.Environment)

	dataStore := openStore(cfg)
	defer dataStore.Close()

	upstream := openUpstream(cfg)
	defer upstream.Close()
	ps := pubsub.NewWithUpstream(upstream)

	analytics := openAnalytics(cfg)
	defer analytics.Close()

	// Durable consumer feeding live picks into analytics
	err = upstream.SubscribeJetStream("clickhouse-picks", func(ev pubsub.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return analytics.RecordPickEvent(ctx, ev)
	})
	if err != nil {
		logger.Error("Failed to start pick analytics consumer", "error", err)
		log.Fatalf("Failed to start pick analytics consumer: %v", err)
	}

	var pickAdvisor advisor.Advisor = advisor.Disabled{}
	if cfg.Advisor.URL != "" {
		pickAdvisor = advisor.NewHTTP(cfg.AdvisorOptions())
		logger.Info("Pick advisor enabled", "url", cfg.Advisor.URL, "oauth2", cfg.Advisor.TokenURL != "")
	} else {
		logger.Info("Pick advisor disabled, using the scoring engine for every pick")
	}

	var board []models.TieredPlayer
	if cfg.RankingsFile != "" {
		board, err = rankings.LoadFile(cfg.RankingsFile)
		if err != nil {
			logger.Error("Failed to load rankings", "error", err, "file", cfg.RankingsFile)
			log.Fatalf("Failed to load rankings: %v", err)
		}
		logger.Info("Loaded rankings board", "file", cfg.RankingsFile, "players", len(board))
	} else {
		logger.Info("Using built-in sample rankings board")
	}

	svc := draft.NewService(draft.ServiceOptions{
		Store:            dataStore,
		Publisher:        ps,
		Analytics:        analytics,
		Advisor:          pickAdvisor,
		AdvisorBoardSize: cfg.Advisor.BoardSize,
		Board:            board,
		Noise:            cfg.OpponentNoise,
		Concurrency:      cfg.SimConcurrency,
	})

	// Start gRPC server in a goroutine
	grpcServer := grpc.NewServer()
	grpcserver.Register(grpcServer, grpcserver.NewServer(svc, ps))
	go func() {
		lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.GRPCPort)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			log.Fatalf("Failed to listen for gRPC: %v", err)
		}

		logger.Info("gRPC server starting", "address", "0.0.0.0:"+cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	health := &handlers.Health{
		Checks: map[string]handlers.Checker{
			"database":   dataStore.Ping,
			"nats":       upstream.Ping,
			"clickhouse": analytics.Ping,
		},
		Ready: dataStore.Ping,
	}

	router := chi.NewRouter()
	router.Handle("/mcp", mcptools.Handler(mcptools.NewServer(svc, version)))
	router.Mount("/", handlers.NewRouter(handlers.NewAPIHandlers(svc, ps), health))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown did not complete", "error", err)
	}
	grpcServer.GracefulStop()
}

func openStore(cfg *config.Config) dal.DraftDAL {
	switch cfg.DBDriver {
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.SQLiteFile)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
		return store
	case "postgres":
		if cfg.DatabaseURL == "" {
			store, err := mocks.NewMockPostgresDAL(cfg.SQLiteFile)
			if err != nil {
				logger.Error("Failed to initialize mock Postgres", "error", err)
				log.Fatalf("Failed to initialize mock Postgres: %v", err)
			}
			return store
		}
		store, err := dal.NewPostgresDAL(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Connected to Postgres database")
		return store
	default:
		logger.Info("Using in-memory data store")
		return dal.NewMemoryDAL()
	}
}

func openUpstream(cfg *config.Config) eventUpstream {
	switch cfg.NATSMode() {
	case "memory":
		return mocks.NewMockNATSPubSub()
	case "embedded":
		logger.Info("Starting embedded NATS server for local development")
		embedded, err := pubsub.NewEmbeddedNATSPubSub(pubsub.EmbeddedNATSOptions{
			Port:          0,
			SubjectPrefix: cfg.NATS.Subject,
			StreamName:    cfg.NATS.Stream,
			StoreDir:      cfg.NATS.StoreDir,
			MaxAge:        time.Hour,
		})
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.GetServerURL())
		return embedded
	default:
		remote, err := pubsub.NewNATSPubSub(cfg.NATS.URL, cfg.NATS.Subject, cfg.NATS.Stream)
		if err != nil {
			logger.Error("Failed to initialize NATS", "error", err)
			log.Fatalf("Failed to initialize NATS: %v", err)
		}
		return remote
	}
}

func openAnalytics(cfg *config.Config) analyticsSink {
	if cfg.DevMode() && cfg.ClickHouse.Addr == "" {
		return mocks.NewMockClickHouseClient()
	}
	addr := cfg.ClickHouse.Addr
	if addr == "" {
		addr = "localhost:9000"
	}
	client, err := clickhouse.NewClient(addr, cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password)
	if err != nil {
		logger.Error("Failed to initialize ClickHouse", "error", err, "address", addr)
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	logger.Info("Connected to ClickHouse", "address", addr, "database", cfg.ClickHouse.Database)
	return client
}
