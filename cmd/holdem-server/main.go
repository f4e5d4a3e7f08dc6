package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/imaddar/poker-arena/services/holdem/internal/api"
	"github.com/imaddar/poker-arena/services/holdem/internal/config"
	"github.com/imaddar/poker-arena/services/holdem/internal/persistence"
	"github.com/imaddar/poker-arena/services/holdem/internal/service"
	"github.com/imaddar/poker-arena/services/holdem/internal/settlement"
)

const databaseStartupTimeout = 10 * time.Second

type CLI struct {
	Config      string `short:"c" default:"holdem-server.hcl" help:"Path to HCL configuration file"`
	Addr        string `short:"a" help:"Server address to bind to (overrides config)"`
	LogLevel    string `short:"l" help:"Log level (overrides config)"`
	DatabaseURL string `name:"database-url" env:"DATABASE_URL" help:"Postgres connection URL (overrides config)"`
	Memory      bool   `help:"Keep hands in memory even when a database is configured"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("holdem-server"),
		kong.Description("Hand settlement and history service for six-max hold'em"),
		kong.UsageOnError(),
	)

	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	logger := config.NewLogger(os.Stderr, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, cli.Memory, logger)
	stop()
	if err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}

// loadConfig reads the HCL file and applies command line overrides.
func loadConfig(cli CLI) (*config.ServerConfig, error) {
	cfg, err := config.LoadServerConfig(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.Addr != "" {
		cfg.Server.Address = cli.Addr
	}
	if cli.LogLevel != "" {
		cfg.Server.LogLevel = cli.LogLevel
	}
	if cli.DatabaseURL != "" {
		cfg.Database.URL = cli.DatabaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.ServerConfig, memory bool, logger *log.Logger) error {
	repo, closeRepo, err := openRepository(ctx, cfg, memory, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	hands := service.NewHands(repo, quartz.NewReal(), logger, service.HistoryLimits{
		Default: cfg.History.DefaultLimit,
		Max:     cfg.History.MaxLimit,
	})
	handler := api.NewServer(hands, api.Options{
		Logger:  logger,
		Settler: settlement.NewSettler(hands, settlement.NewGuard(), logger),
	})

	listener, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Address, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Starting Holdem server", "addr", listener.Addr().String(), "version", api.Version)
	return serve(ctx, srv, listener, cfg.ShutdownTimeout(), logger)
}

// serve runs srv until ctx is done, then drains it within shutdownTimeout.
func serve(ctx context.Context, srv *http.Server, listener net.Listener, shutdownTimeout time.Duration, logger *log.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openRepository connects to Postgres and migrates it, or falls back to the
// in-memory store when no database URL is configured.
func openRepository(ctx context.Context, cfg *config.ServerConfig, memory bool, logger *log.Logger) (persistence.Repository, func(), error) {
	if memory || cfg.Database.URL == "" {
		logger.Warn("Using in-memory hand store; history is lost on restart")
		return persistence.NewInMemoryRepository(), func() {}, nil
	}
	if !hasSQLDriver("postgres") {
		return nil, nil, errors.New("postgres SQL driver is not linked; add a driver import such as github.com/lib/pq in this binary")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	startCtx, cancel := context.WithTimeout(ctx, databaseStartupTimeout)
	defer cancel()
	if err := db.PingContext(startCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := persistence.MigratePostgres(startCtx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("database migration failed: %w", err)
	}
	logger.Info("Connected to database", "max_open_conns", cfg.Database.MaxOpenConns)
	return persistence.NewPostgresRepository(db), func() { _ = db.Close() }, nil
}

func hasSQLDriver(name string) bool {
	for _, driver := range sql.Drivers() {
		if driver == name {
			return true
		}
	}
	return false
}
