package tablerunner

import (
	"context"
	"fmt"
	"sync"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
)

// PassiveProvider calls any bet and checks otherwise.
type PassiveProvider struct{}

func (PassiveProvider) NextAction(_ context.Context, state domain.HandState) (domain.Action, error) {
	acting, ok := state.Acting()
	if !ok {
		return domain.Action{}, ErrRunnerMisconfigured
	}
	if state.CurrentBet > acting.Committed {
		return domain.NewAction(domain.ActionCall, nil)
	}
	return domain.NewAction(domain.ActionCheck, nil)
}

// RandomProvider picks uniformly among the legal actions. Raises go to the
// minimum raise and bets use the big blind.
type RandomProvider struct {
	mu  sync.Mutex
	rng rules.Rand
}

func NewRandomProvider(seed int64) *RandomProvider {
	return &RandomProvider{rng: rules.NewSeededRand(seed)}
}

func (p *RandomProvider) NextAction(_ context.Context, state domain.HandState) (domain.Action, error) {
	legal := statemachine.LegalActions(state)
	if len(legal) == 0 {
		return domain.Action{}, fmt.Errorf("%w: no legal actions for seat %d", ErrRunnerMisconfigured, state.ActingSeat)
	}

	p.mu.Lock()
	kind := legal[p.rng.IntN(len(legal))]
	p.mu.Unlock()

	switch kind {
	case domain.ActionRaise:
		return domain.NewAction(kind, domain.Chips(statemachine.MinRaiseTo(state)))
	case domain.ActionBet:
		return domain.NewAction(kind, domain.Chips(domain.BigBlind))
	default:
		return domain.NewAction(kind, nil)
	}
}

// SeatProviders routes each decision to the provider registered for the
// acting seat, falling back to Default.
type SeatProviders struct {
	Seats   map[domain.SeatNo]ActionProvider
	Default ActionProvider
}

func (p SeatProviders) NextAction(ctx context.Context, state domain.HandState) (domain.Action, error) {
	if provider, ok := p.Seats[state.ActingSeat]; ok && provider != nil {
		return provider.NextAction(ctx, state)
	}
	if p.Default == nil {
		return domain.Action{}, fmt.Errorf("%w: no provider for seat %d", ErrRunnerMisconfigured, state.ActingSeat)
	}
	return p.Default.NextAction(ctx, state)
}
