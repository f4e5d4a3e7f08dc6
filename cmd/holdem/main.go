package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/imaddar/poker-arena/services/holdem/internal/config"
	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/settlement"
	"github.com/imaddar/poker-arena/services/holdem/internal/tablerunner"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Config   string           `short:"c" default:"holdem.hcl" help:"Path to HCL configuration file"`
	LogLevel string           `short:"l" help:"Log level (overrides config)"`
	APIURL   string           `name:"api-url" env:"HOLDEM_API_URL" help:"Settlement service URL (overrides config)"`
	Offline  bool             `help:"Play without settling hands with the service"`

	Play     PlayCmd     `cmd:"" default:"withargs" help:"Play at an interactive terminal table"`
	Simulate SimulateCmd `cmd:"" help:"Run scripted hands and report the results"`
	History  HistoryCmd  `cmd:"" help:"Show recently settled hands"`
}

// runtime carries what every subcommand needs.
type runtime struct {
	cfg     *config.ClientConfig
	logger  *log.Logger
	offline bool
	in      io.Reader
	out     io.Writer
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("holdem"),
		kong.Description("Six-max no-limit hold'em at the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := &runtime{
		cfg:     cfg,
		logger:  config.NewLogger(os.Stderr, cfg.LogLevel),
		offline: cli.Offline,
		in:      os.Stdin,
		out:     os.Stdout,
	}
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(rt)
	err = kctx.Run()
	kctx.FatalIfErrorf(err)
}

func loadConfig(cli CLI) (*config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.APIURL != "" {
		cfg.API.URL = cli.APIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// settler returns nil when hands should not be settled.
func (rt *runtime) settler() tablerunner.Settler {
	if rt.offline || rt.cfg.API.URL == "" {
		return nil
	}
	client := settlement.NewClient(rt.cfg.API.URL, rt.cfg.Timeout())
	return settlement.NewSettler(client, settlement.NewGuard(), rt.logger)
}

func (rt *runtime) historyClient() (settlement.Client, error) {
	if rt.cfg.API.URL == "" {
		return settlement.Client{}, fmt.Errorf("%w: set api.url or --api-url", settlement.ErrNotConfigured)
	}
	return settlement.NewClient(rt.cfg.API.URL, rt.cfg.Timeout()), nil
}

func (rt *runtime) stackSize(override int) (uint32, error) {
	stack := rt.cfg.Table.StackSize
	if override != 0 {
		stack = override
	}
	if stack <= int(domain.BigBlind) {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidStackSize, stack)
	}
	return uint32(stack), nil
}
