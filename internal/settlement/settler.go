package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

var ErrAlreadyRequested = errors.New("settlement already requested for hand")

type Submitter interface {
	Submit(ctx context.Context, req Request) (Response, error)
}

// Settler submits each completed hand once and merges the winnings it gets back.
type Settler struct {
	submitter Submitter
	guard     *Guard
	logger    *log.Logger
}

func NewSettler(submitter Submitter, guard *Guard, logger *log.Logger) *Settler {
	if guard == nil {
		guard = NewGuard()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Settler{submitter: submitter, guard: guard, logger: logger.WithPrefix("settlement")}
}

// Settle returns state unchanged while the hand is still running or already
// settled. Any failure releases the hand so a later call can retry.
func (s *Settler) Settle(ctx context.Context, state domain.HandState) (domain.HandState, error) {
	if !state.Complete || state.Settled() {
		return state, nil
	}

	req, err := BuildRequest(state)
	if err != nil {
		return state, err
	}
	if !s.guard.Acquire(state.HandID) {
		return state, fmt.Errorf("%w: %s", ErrAlreadyRequested, state.HandID)
	}

	resp, err := s.submitter.Submit(ctx, req)
	if err != nil {
		s.guard.Release(state.HandID)
		s.logger.Warn("Settlement failed", "hand", state.HandID, "error", err)
		return state, err
	}

	winnings, err := ParseWinnings(resp.Winnings)
	if err != nil {
		s.guard.Release(state.HandID)
		s.logger.Warn("Settlement response rejected", "hand", state.HandID, "error", err)
		return state, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	s.guard.Done(state.HandID)
	next := state.Clone()
	next.Settlement = winnings
	s.logger.Info("Hand settled", "hand", state.HandID, "winnings", FormatWinnings(winnings))
	return next, nil
}
