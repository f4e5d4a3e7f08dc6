// Package tablerunner plays hands to completion by asking an ActionProvider
// for every decision and settling each finished hand.
package tablerunner

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
)

const defaultMaxActionsPerHand = 512

var (
	ErrActionLimitExceeded = errors.New("action limit exceeded")
	ErrRunnerMisconfigured = errors.New("runner misconfigured")
	ErrContextCancelled    = errors.New("runner context cancelled")
	ErrInvalidHandsToRun   = errors.New("hands to run must be greater than zero")
)

type ActionProvider interface {
	NextAction(ctx context.Context, state domain.HandState) (domain.Action, error)
}

// Settler is satisfied by *settlement.Settler.
type Settler interface {
	Settle(ctx context.Context, state domain.HandState) (domain.HandState, error)
}

type RunnerConfig struct {
	MaxActionsPerHand int
	StackSize         uint32
	// Settler is optional; without one hands finish unsettled.
	Settler        Settler
	Logger         *log.Logger
	OnHandStart    func(state domain.HandState)
	OnAction       func(before domain.HandState, action domain.Action, isFallback bool)
	OnHandComplete func(HandSummary)
}

type Runner struct {
	engine   *statemachine.Engine
	provider ActionProvider
	config   RunnerConfig
	logger   *log.Logger
}

type RunHandInput struct {
	// HandID is optional; the engine assigns one when empty.
	HandID string
}

type RunHandResult struct {
	FinalState    domain.HandState
	ActionCount   int
	FallbackCount int
	// SettleErr records a failed settlement. The hand itself still completed.
	SettleErr error
}

type RunHandsInput struct {
	HandsToRun int
	HandIDs    func(handNo int) string
}

type HandSummary struct {
	HandNo        int
	ActionCount   int
	FallbackCount int
	FinalState    domain.HandState
	SettleErr     error
}

type RunHandsResult struct {
	HandsCompleted int
	HandsSettled   int
	TotalActions   int
	TotalFallbacks int
	// Net sums every settled hand's result per seat.
	Net           domain.Settlement
	HandSummaries []HandSummary
}

func New(engine *statemachine.Engine, provider ActionProvider, config RunnerConfig) Runner {
	if engine == nil {
		engine = statemachine.NewEngine(nil)
	}
	if config.StackSize == 0 {
		config.StackSize = domain.DefaultStackSize
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return Runner{
		engine:   engine,
		provider: provider,
		config:   config,
		logger:   logger.WithPrefix("tablerunner"),
	}
}

// RunHands plays hands one after another, each from fresh stacks. It stops
// at the first hand that cannot be played to completion.
func (r Runner) RunHands(ctx context.Context, input RunHandsInput) (RunHandsResult, error) {
	result := RunHandsResult{Net: make(domain.Settlement, domain.NumSeats)}

	if input.HandsToRun <= 0 {
		return result, ErrInvalidHandsToRun
	}
	if r.provider == nil {
		return result, ErrRunnerMisconfigured
	}
	result.HandSummaries = make([]HandSummary, 0, input.HandsToRun)

	for handNo := 1; handNo <= input.HandsToRun; handNo++ {
		if err := checkContext(ctx); err != nil {
			return result, err
		}

		var handID string
		if input.HandIDs != nil {
			handID = input.HandIDs(handNo)
		}
		handResult, err := r.RunHand(ctx, RunHandInput{HandID: handID})
		if err != nil {
			return result, fmt.Errorf("hand %d: %w", handNo, err)
		}

		summary := HandSummary{
			HandNo:        handNo,
			ActionCount:   handResult.ActionCount,
			FallbackCount: handResult.FallbackCount,
			FinalState:    handResult.FinalState.Clone(),
			SettleErr:     handResult.SettleErr,
		}
		result.HandsCompleted++
		result.TotalActions += handResult.ActionCount
		result.TotalFallbacks += handResult.FallbackCount
		if handResult.FinalState.Settled() {
			result.HandsSettled++
			for seatNo, amount := range handResult.FinalState.Settlement {
				result.Net[seatNo] += amount
			}
		}
		result.HandSummaries = append(result.HandSummaries, summary)
		if r.config.OnHandComplete != nil {
			r.config.OnHandComplete(summary)
		}
	}
	return result, nil
}

// RunHand deals one hand and plays it out. Provider errors and illegal
// actions are replaced by a check, or a fold when checking is not allowed.
func (r Runner) RunHand(ctx context.Context, input RunHandInput) (RunHandResult, error) {
	var result RunHandResult

	if r.provider == nil {
		return result, ErrRunnerMisconfigured
	}
	if err := checkContext(ctx); err != nil {
		return result, err
	}

	maxActions := r.config.MaxActionsPerHand
	if maxActions <= 0 {
		maxActions = defaultMaxActionsPerHand
	}

	state, err := r.engine.NewHand(statemachine.NewHandInput{
		HandID:    input.HandID,
		StackSize: r.config.StackSize,
		DealCards: true,
	})
	if err != nil {
		return result, err
	}
	result.FinalState = state
	if r.config.OnHandStart != nil {
		r.config.OnHandStart(state)
	}

	for !state.Complete {
		if result.ActionCount >= maxActions {
			return result, fmt.Errorf("%w: applied %d actions (max %d)", ErrActionLimitExceeded, result.ActionCount, maxActions)
		}
		if err := checkContext(ctx); err != nil {
			return result, err
		}

		action, err := r.provider.NextAction(ctx, state)
		if err != nil {
			if err := checkContext(ctx); err != nil {
				return result, err
			}
			r.logger.Debug("Provider failed, using fallback", "hand", state.HandID, "seat", state.ActingSeat, "error", err)
			state, err = r.applyFallback(state)
			if err != nil {
				return result, fmt.Errorf("apply fallback after provider error: %w", err)
			}
			result.ActionCount++
			result.FallbackCount++
			result.FinalState = state
			continue
		}

		next, err := r.engine.Apply(state, action)
		if err != nil {
			r.logger.Debug("Illegal action, using fallback", "hand", state.HandID, "seat", state.ActingSeat, "action", action.Kind, "error", err)
			state, err = r.applyFallback(state)
			if err != nil {
				return result, fmt.Errorf("apply fallback after illegal action: %w", err)
			}
			result.ActionCount++
			result.FallbackCount++
			result.FinalState = state
			continue
		}

		if r.config.OnAction != nil {
			r.config.OnAction(state, action, false)
		}
		state = next
		result.ActionCount++
		result.FinalState = state
	}

	if r.config.Settler != nil {
		settled, err := r.config.Settler.Settle(ctx, state)
		if err != nil {
			r.logger.Warn("Hand left unsettled", "hand", state.HandID, "error", err)
			result.SettleErr = err
		} else {
			result.FinalState = settled
		}
	}
	return result, nil
}

func (r Runner) applyFallback(state domain.HandState) (domain.HandState, error) {
	check := domain.MustAction(domain.ActionCheck, nil)
	next, err := r.engine.Apply(state, check)
	if err == nil {
		r.notifyFallback(state, check)
		return next, nil
	}

	fold := domain.MustAction(domain.ActionFold, nil)
	next, foldErr := r.engine.Apply(state, fold)
	if foldErr != nil {
		return state, fmt.Errorf("fallback check failed (%v) and fallback fold failed (%w)", err, foldErr)
	}
	r.notifyFallback(state, fold)
	return next, nil
}

func (r Runner) notifyFallback(before domain.HandState, action domain.Action) {
	if r.config.OnAction != nil {
		r.config.OnAction(before, action, true)
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
	default:
		return nil
	}
}
