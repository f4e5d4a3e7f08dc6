package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
	"github.com/imaddar/poker-arena/services/holdem/internal/tablerunner"
)

var (
	errUnsupportedAction = errors.New("unsupported action")
	errLeftTable         = errors.New("left the table")
)

type PlayCmd struct {
	Hands     int    `short:"n" default:"1" help:"Number of hands to play"`
	StackSize int    `help:"Starting stack for every seat (overrides config)"`
	Seat      int    `help:"Only act for this seat and let random players take the others (0 acts for every seat)"`
	Seed      *int64 `help:"Deterministic deck seed"`
}

func (c *PlayCmd) Run(ctx context.Context, rt *runtime) error {
	stack, err := rt.stackSize(c.StackSize)
	if err != nil {
		return err
	}
	if c.Hands <= 0 {
		return tablerunner.ErrInvalidHandsToRun
	}

	ctx, leave := context.WithCancel(ctx)
	defer leave()

	styles := newTableStyles()
	human := newHumanProvider(rt.in, rt.out, styles, leave)
	provider, err := c.provider(human)
	if err != nil {
		return err
	}

	settler := rt.settler()
	runner := tablerunner.New(newEngine(c.Seed), provider, tablerunner.RunnerConfig{
		MaxActionsPerHand: rt.cfg.Table.MaxActions,
		StackSize:         stack,
		Settler:           settler,
		Logger:            rt.logger,
		OnHandStart: func(state domain.HandState) {
			fmt.Fprintln(rt.out, styles.Header.Render(fmt.Sprintf("Hand #%s", state.HandID)))
		},
		OnAction: func(before domain.HandState, action domain.Action, isFallback bool) {
			fmt.Fprintln(rt.out, describeAction(styles, before.ActingSeat, action, isFallback))
		},
		OnHandComplete: func(summary tablerunner.HandSummary) {
			fmt.Fprintln(rt.out)
			fmt.Fprint(rt.out, renderHandLog(styles, summary.FinalState))
			if summary.SettleErr != nil {
				fmt.Fprintln(rt.out, styles.Fallback.Render(fmt.Sprintf("hand not settled: %v", summary.SettleErr)))
			}
			fmt.Fprintln(rt.out)
		},
	})

	result, err := runner.RunHands(ctx, tablerunner.RunHandsInput{HandsToRun: c.Hands})
	if err != nil && !errors.Is(err, tablerunner.ErrContextCancelled) {
		return err
	}
	fmt.Fprint(rt.out, renderSessionSummary(styles, result, settler != nil))
	return nil
}

func (c *PlayCmd) provider(human tablerunner.ActionProvider) (tablerunner.ActionProvider, error) {
	if c.Seat == 0 {
		return human, nil
	}
	seat, err := domain.NewSeatNo(c.Seat)
	if err != nil {
		return nil, err
	}
	seed := int64(c.Seat)
	if c.Seed != nil {
		seed = *c.Seed
	}
	return tablerunner.SeatProviders{
		Seats:   map[domain.SeatNo]tablerunner.ActionProvider{seat: human},
		Default: tablerunner.NewRandomProvider(seed),
	}, nil
}

func newEngine(seed *int64) *statemachine.Engine {
	if seed == nil {
		return statemachine.NewEngine(rules.NewCryptoSource())
	}
	return statemachine.NewEngine(rules.NewSeededSource(*seed))
}

// humanProvider prompts the operator for the acting seat's decision.
type humanProvider struct {
	in     *bufio.Scanner
	out    io.Writer
	styles tableStyles
	leave  context.CancelFunc
}

func newHumanProvider(in io.Reader, out io.Writer, styles tableStyles, leave context.CancelFunc) humanProvider {
	return humanProvider{in: bufio.NewScanner(in), out: out, styles: styles, leave: leave}
}

func (p humanProvider) NextAction(ctx context.Context, state domain.HandState) (domain.Action, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Action{}, err
		}

		fmt.Fprint(p.out, renderTable(p.styles, state))
		fmt.Fprintf(p.out, "Seat %d action > ", state.ActingSeat)
		if !p.in.Scan() {
			p.leave()
			if err := p.in.Err(); err != nil {
				return domain.Action{}, err
			}
			return domain.Action{}, io.EOF
		}

		rawInput := strings.ToLower(strings.TrimSpace(p.in.Text()))
		if rawInput == "quit" || rawInput == "q" {
			p.leave()
			return domain.Action{}, errLeftTable
		}

		action, err := parseHumanAction(rawInput)
		if err != nil {
			fmt.Fprintf(p.out, "invalid action: %v\n", err)
			continue
		}
		if action.Kind == domain.ActionRaise && action.Amount == nil {
			amount := statemachine.MinRaiseTo(state)
			fmt.Fprintf(p.out, "interpreting bare 'raise' as minimum raise to %d\n", amount)
			action.Amount = &amount
		}
		if err := statemachine.ValidateAction(state, action); err != nil {
			fmt.Fprintf(p.out, "illegal action: %v\n", err)
			continue
		}
		return action, nil
	}
}

// parseHumanAction reads "fold", "check", "call", "bet [amt]", "raise [to]"
// and "allin", or their one-letter forms.
func parseHumanAction(input string) (domain.Action, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(parts) == 0 {
		return domain.Action{}, fmt.Errorf("%w: empty action", errUnsupportedAction)
	}

	var kind domain.ActionKind
	switch parts[0] {
	case "fold", "f":
		kind = domain.ActionFold
	case "check", "k", "x":
		kind = domain.ActionCheck
	case "call", "c":
		kind = domain.ActionCall
	case "bet", "b":
		kind = domain.ActionBet
	case "raise", "r":
		kind = domain.ActionRaise
	case "allin", "all-in", "a":
		kind = domain.ActionAllIn
	default:
		return domain.Action{}, fmt.Errorf("%w: %q", errUnsupportedAction, input)
	}

	switch kind {
	case domain.ActionBet, domain.ActionRaise:
		if len(parts) > 2 {
			return domain.Action{}, fmt.Errorf("%w: %s takes at most one amount", errUnsupportedAction, parts[0])
		}
		if len(parts) == 1 {
			return domain.Action{Kind: kind}, nil
		}
		parsed, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil || parsed == 0 {
			return domain.Action{}, fmt.Errorf("%w: invalid amount %q", errUnsupportedAction, parts[1])
		}
		return domain.NewAction(kind, domain.Chips(uint32(parsed)))
	default:
		if len(parts) != 1 {
			return domain.Action{}, fmt.Errorf("%w: %s does not take an amount", errUnsupportedAction, parts[0])
		}
		return domain.NewAction(kind, nil)
	}
}
