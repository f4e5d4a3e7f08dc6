package tablerunner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/persistence"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/service"
	"github.com/imaddar/poker-arena/services/holdem/internal/settlement"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
)

func TestRunHand_PassivePlayReachesShowdown(t *testing.T) {
	t.Parallel()

	runner := New(seededEngine(1), PassiveProvider{}, RunnerConfig{Logger: quietLogger()})

	result, err := runner.RunHand(context.Background(), RunHandInput{HandID: "h1"})
	if err != nil {
		t.Fatalf("RunHand failed: %v", err)
	}
	if !result.FinalState.Complete {
		t.Fatal("expected complete hand")
	}
	if result.FinalState.Street != domain.StreetShowdown {
		t.Fatalf("expected showdown, got %s", result.FinalState.Street)
	}
	if result.ActionCount != 24 {
		t.Fatalf("expected 24 actions, got %d", result.ActionCount)
	}
	if result.FallbackCount != 0 {
		t.Fatalf("expected no fallbacks, got %d", result.FallbackCount)
	}
	if got, want := chipTotal(result.FinalState), 6*int64(domain.DefaultStackSize); got != want {
		t.Fatalf("chip conservation failed: got %d want %d", got, want)
	}
}

func TestRunHand_UsesFallbackWhenProviderErrors(t *testing.T) {
	t.Parallel()

	runner := New(seededEngine(2), failingProvider{err: errors.New("boom")}, RunnerConfig{Logger: quietLogger()})

	result, err := runner.RunHand(context.Background(), RunHandInput{})
	if err != nil {
		t.Fatalf("RunHand failed: %v", err)
	}
	if result.FallbackCount != 5 {
		t.Fatalf("expected 5 fallback folds, got %d", result.FallbackCount)
	}
	if !result.FinalState.Complete || result.FinalState.LiveSeats() != 1 {
		t.Fatalf("expected hand won by the big blind, got %+v", result.FinalState)
	}
	if result.FinalState.HandID == "" {
		t.Fatal("expected generated hand id")
	}
}

func TestRunHand_UsesFallbackWhenProviderReturnsIllegalAction(t *testing.T) {
	t.Parallel()

	var fallbacks []domain.ActionKind
	runner := New(seededEngine(3), fixedProvider{action: domain.MustAction(domain.ActionCheck, nil)}, RunnerConfig{
		Logger: quietLogger(),
		OnAction: func(_ domain.HandState, action domain.Action, isFallback bool) {
			if isFallback {
				fallbacks = append(fallbacks, action.Kind)
			}
		},
	})

	result, err := runner.RunHand(context.Background(), RunHandInput{})
	if err != nil {
		t.Fatalf("RunHand failed: %v", err)
	}
	if result.FallbackCount != 5 || len(fallbacks) != 5 {
		t.Fatalf("expected 5 fallbacks, got %d (callbacks %d)", result.FallbackCount, len(fallbacks))
	}
	for _, kind := range fallbacks {
		if kind != domain.ActionFold {
			t.Fatalf("expected fallback folds facing the big blind, got %s", kind)
		}
	}
}

func TestRunHand_StopsOnActionLimit(t *testing.T) {
	t.Parallel()

	runner := New(seededEngine(4), PassiveProvider{}, RunnerConfig{MaxActionsPerHand: 2, Logger: quietLogger()})

	result, err := runner.RunHand(context.Background(), RunHandInput{})
	if !errors.Is(err, ErrActionLimitExceeded) {
		t.Fatalf("expected ErrActionLimitExceeded, got %v", err)
	}
	if result.ActionCount != 2 {
		t.Fatalf("expected 2 applied actions, got %d", result.ActionCount)
	}
}

func TestRunHand_RespectsContextCancellation(t *testing.T) {
	t.Parallel()

	runner := New(seededEngine(5), PassiveProvider{}, RunnerConfig{Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.RunHand(ctx, RunHandInput{})
	if !errors.Is(err, ErrContextCancelled) {
		t.Fatalf("expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunHand_RecordsSettlementFailure(t *testing.T) {
	t.Parallel()

	settler := &fakeSettler{err: settlement.ErrServer}
	runner := New(seededEngine(6), PassiveProvider{}, RunnerConfig{Settler: settler, Logger: quietLogger()})

	result, err := runner.RunHand(context.Background(), RunHandInput{})
	if err != nil {
		t.Fatalf("RunHand failed: %v", err)
	}
	if !errors.Is(result.SettleErr, settlement.ErrServer) {
		t.Fatalf("expected settlement error, got %v", result.SettleErr)
	}
	if result.FinalState.Settled() {
		t.Fatal("expected unsettled hand")
	}
	if settler.calls != 1 {
		t.Fatalf("expected one settle call, got %d", settler.calls)
	}
}

func TestRunHands_SettlesEveryHandInProcess(t *testing.T) {
	t.Parallel()

	logger := quietLogger()
	hands := service.NewHands(persistence.NewInMemoryRepository(), nil, logger, service.DefaultHistoryLimits())
	settler := settlement.NewSettler(hands, settlement.NewGuard(), logger)

	var completed []int
	runner := New(seededEngine(7), NewRandomProvider(7), RunnerConfig{
		Settler: settler,
		Logger:  logger,
		OnHandComplete: func(summary HandSummary) {
			completed = append(completed, summary.HandNo)
		},
	})

	result, err := runner.RunHands(context.Background(), RunHandsInput{
		HandsToRun: 20,
		HandIDs:    func(handNo int) string { return fmt.Sprintf("sim-%d", handNo) },
	})
	if err != nil {
		t.Fatalf("RunHands failed: %v", err)
	}
	if result.HandsCompleted != 20 || result.HandsSettled != 20 {
		t.Fatalf("expected 20 completed and settled hands, got %d/%d", result.HandsCompleted, result.HandsSettled)
	}
	if result.TotalFallbacks != 0 {
		t.Fatalf("random provider should only pick legal actions, got %d fallbacks", result.TotalFallbacks)
	}
	if result.Net.Total() != 0 {
		t.Fatalf("expected zero-sum net results, got %v", result.Net)
	}
	if len(completed) != 20 || completed[0] != 1 || completed[19] != 20 {
		t.Fatalf("unexpected completion callbacks: %v", completed)
	}
	if result.HandSummaries[3].FinalState.HandID != "sim-4" {
		t.Fatalf("expected hand id sim-4, got %s", result.HandSummaries[3].FinalState.HandID)
	}

	history, err := hands.List(context.Background(), 5)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("expected 5 history entries, got %d", len(history))
	}
}

func TestRunHands_ValidatesInput(t *testing.T) {
	t.Parallel()

	runner := New(seededEngine(8), PassiveProvider{}, RunnerConfig{Logger: quietLogger()})
	if _, err := runner.RunHands(context.Background(), RunHandsInput{}); !errors.Is(err, ErrInvalidHandsToRun) {
		t.Fatalf("expected ErrInvalidHandsToRun, got %v", err)
	}

	noProvider := New(seededEngine(8), nil, RunnerConfig{Logger: quietLogger()})
	if _, err := noProvider.RunHands(context.Background(), RunHandsInput{HandsToRun: 1}); !errors.Is(err, ErrRunnerMisconfigured) {
		t.Fatalf("expected ErrRunnerMisconfigured, got %v", err)
	}
}

func TestSeatProvidersRoutesByActingSeat(t *testing.T) {
	t.Parallel()

	folder := fixedProvider{action: domain.MustAction(domain.ActionFold, nil)}
	provider := SeatProviders{
		Seats:   map[domain.SeatNo]ActionProvider{6: folder},
		Default: PassiveProvider{},
	}
	runner := New(seededEngine(9), provider, RunnerConfig{Logger: quietLogger()})

	result, err := runner.RunHand(context.Background(), RunHandInput{})
	if err != nil {
		t.Fatalf("RunHand failed: %v", err)
	}
	seat6, _ := result.FinalState.Seat(6)
	if !seat6.Folded {
		t.Fatal("expected seat 6 to fold")
	}
	if result.FinalState.LiveSeats() != 5 {
		t.Fatalf("expected five seats to reach showdown, got %d", result.FinalState.LiveSeats())
	}

	empty := SeatProviders{}
	if _, err := empty.NextAction(context.Background(), result.FinalState); !errors.Is(err, ErrRunnerMisconfigured) {
		t.Fatalf("expected ErrRunnerMisconfigured, got %v", err)
	}
}

type failingProvider struct {
	err error
}

func (p failingProvider) NextAction(context.Context, domain.HandState) (domain.Action, error) {
	return domain.Action{}, p.err
}

type fixedProvider struct {
	action domain.Action
}

func (p fixedProvider) NextAction(context.Context, domain.HandState) (domain.Action, error) {
	return p.action, nil
}

type fakeSettler struct {
	calls int
	err   error
}

func (s *fakeSettler) Settle(_ context.Context, state domain.HandState) (domain.HandState, error) {
	s.calls++
	if s.err != nil {
		return state, s.err
	}
	next := state.Clone()
	next.Settlement = rules.CalculateWinnings(state)
	return next, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func quietLogger() *log.Logger {
	return log.New(discard{})
}

func seededEngine(seed int64) *statemachine.Engine {
	return statemachine.NewEngine(rules.NewSeededSource(seed))
}

func chipTotal(state domain.HandState) int64 {
	total := int64(state.Pot) - int64(domain.PostedBlinds)
	for _, seat := range state.Seats {
		total += int64(seat.Stack) + int64(seat.Committed)
	}
	return total
}
