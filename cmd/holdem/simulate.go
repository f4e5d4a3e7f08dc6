package main

import (
	"context"
	"fmt"

	"github.com/imaddar/poker-arena/services/holdem/internal/agentclient"
	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
	"github.com/imaddar/poker-arena/services/holdem/internal/tablerunner"
)

type SimulateCmd struct {
	Hands     int            `short:"n" default:"100" help:"Number of hands to run"`
	Seed      int64          `default:"1" help:"Seed for the deck and the random players"`
	Players   string         `enum:"random,passive" default:"random" help:"Built-in player for seats without an agent (random, passive)"`
	Agent     map[int]string `help:"Remote agent URL for a seat, e.g. --agent 2=http://localhost:9000/act"`
	StackSize int            `help:"Starting stack for every seat (overrides config)"`
	Report    string         `type:"path" help:"Write a JSON run report to this file"`
	Quiet     bool           `short:"q" help:"Only print the run summary"`
}

func (c *SimulateCmd) Run(ctx context.Context, rt *runtime) error {
	stack, err := rt.stackSize(c.StackSize)
	if err != nil {
		return err
	}
	provider, err := c.provider(rt)
	if err != nil {
		return err
	}

	settler := rt.settler()
	runner := tablerunner.New(statemachine.NewEngine(rules.NewSeededSource(c.Seed)), provider, tablerunner.RunnerConfig{
		MaxActionsPerHand: rt.cfg.Table.MaxActions,
		StackSize:         stack,
		Settler:           settler,
		Logger:            rt.logger,
		OnHandComplete: func(summary tablerunner.HandSummary) {
			rt.logger.Debug("Hand complete",
				"hand_no", summary.HandNo,
				"hand", summary.FinalState.HandID,
				"street", summary.FinalState.Street,
				"actions", summary.ActionCount,
				"fallbacks", summary.FallbackCount)
		},
	})

	rt.logger.Info("Starting simulation", "hands", c.Hands, "seed", c.Seed, "players", c.Players, "agents", len(c.Agent))
	result, err := runner.RunHands(ctx, tablerunner.RunHandsInput{HandsToRun: c.Hands})
	if err != nil {
		return err
	}

	seed := c.Seed
	report := buildRunReport(buildRunReportInput{
		Mode:           c.mode(),
		HandsRequested: c.Hands,
		StackSize:      stack,
		Seed:           &seed,
		Settling:       settler != nil,
		Result:         result,
	})
	fmt.Fprint(rt.out, renderRunOutput(newTableStyles(), report, !c.Quiet))

	if c.Report != "" {
		if err := writeRunReportJSON(c.Report, report); err != nil {
			return fmt.Errorf("write run report: %w", err)
		}
		rt.logger.Info("Wrote run report", "path", c.Report)
	}
	return nil
}

func (c *SimulateCmd) mode() string {
	if len(c.Agent) > 0 {
		return "agents+" + c.Players
	}
	return c.Players
}

func (c *SimulateCmd) provider(rt *runtime) (tablerunner.ActionProvider, error) {
	var builtin tablerunner.ActionProvider
	switch c.Players {
	case "passive":
		builtin = tablerunner.PassiveProvider{}
	case "random", "":
		builtin = tablerunner.NewRandomProvider(c.Seed)
	default:
		return nil, fmt.Errorf("unknown player kind %q", c.Players)
	}
	if len(c.Agent) == 0 {
		return builtin, nil
	}

	endpoints, err := agentclient.NewStaticEndpoints(c.Agent)
	if err != nil {
		return nil, err
	}
	remote := agentclient.ActionProvider{
		Client:        agentclient.New(rt.cfg.ActionTimeout()),
		Endpoints:     endpoints,
		ActionTimeout: rt.cfg.ActionTimeout(),
	}
	seats := make(map[domain.SeatNo]tablerunner.ActionProvider, len(endpoints))
	for _, seat := range endpoints.Seats() {
		seats[seat] = remote
		rt.logger.Info("Seat played by remote agent", "seat", seat, "url", endpoints[seat])
	}
	return tablerunner.SeatProviders{Seats: seats, Default: builtin}, nil
}
