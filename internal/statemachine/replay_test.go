package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

func TestReplayRebuildsPlayedHand(t *testing.T) {
	t.Parallel()

	engine, state := startedHand(t, 9)
	state = mustApply(t, engine, state, domain.ActionRaise, domain.Chips(120))
	state = mustApply(t, engine, state, domain.ActionFold, nil)
	state = mustApply(t, engine, state, domain.ActionFold, nil)
	state = mustApply(t, engine, state, domain.ActionCall, nil)
	state = mustApply(t, engine, state, domain.ActionFold, nil)
	state = mustApply(t, engine, state, domain.ActionFold, nil)
	require.Equal(t, domain.StreetFlop, state.Street)
	state = mustApply(t, engine, state, domain.ActionBet, domain.Chips(100))
	state = mustApply(t, engine, state, domain.ActionAllIn, nil)
	state = mustApply(t, engine, state, domain.ActionCall, nil)
	require.True(t, state.Complete)

	replayed, err := Replay(replayInput(state))
	require.NoError(t, err)

	assert.Equal(t, state, replayed)
}

func TestReplayRejectsOutOfTurnAction(t *testing.T) {
	t.Parallel()

	engine, state := startedHand(t, 9)
	for range 5 {
		state = mustApply(t, engine, state, domain.ActionFold, nil)
	}
	input := replayInput(state)
	input.Actions[0].Seat = 2

	_, err := Replay(input)
	require.ErrorIs(t, err, ErrInvalidHandRecord)
}

func TestReplayRejectsIllegalAction(t *testing.T) {
	t.Parallel()

	_, state := startedHand(t, 9)
	input := replayInput(state)
	input.Actions = []domain.ActionRecord{{Street: domain.StreetPreflop, Seat: 6, Kind: domain.ActionCheck}}

	_, err := Replay(input)
	require.ErrorIs(t, err, ErrInvalidHandRecord)
	require.ErrorIs(t, err, ErrIllegalAction)
}

func TestReplayRejectsMissingHoleCards(t *testing.T) {
	t.Parallel()

	_, state := startedHand(t, 9)
	input := replayInput(state)
	delete(input.HoleCards, 3)

	_, err := Replay(input)
	require.ErrorIs(t, err, ErrInvalidHandRecord)
}

func TestReplayRejectsTamperedBoard(t *testing.T) {
	t.Parallel()

	engine, state := startedHand(t, 9)
	state = playPreflopLimped(t, engine, state)
	input := replayInput(state)
	input.Actions[len(input.Actions)-1].Cards = "2c2d2h"

	_, err := Replay(input)
	require.ErrorIs(t, err, ErrInvalidHandRecord)
}

func TestReplayRejectsUndealtBoardCards(t *testing.T) {
	t.Parallel()

	engine, state := startedHand(t, 9)
	for range 5 {
		state = mustApply(t, engine, state, domain.ActionFold, nil)
	}
	input := replayInput(state)
	input.Board = []domain.Card{"2c", "2d", "2h"}

	_, err := Replay(input)
	require.ErrorIs(t, err, ErrInvalidHandRecord)
}

func replayInput(state domain.HandState) ReplayInput {
	hole := make(map[domain.SeatNo][]domain.Card, len(state.Seats))
	for _, seat := range state.Seats {
		hole[seat.SeatNo] = append([]domain.Card(nil), seat.HoleCards...)
	}
	return ReplayInput{
		HandID:    state.HandID,
		StackSize: state.StackSize,
		HoleCards: hole,
		Board:     append([]domain.Card(nil), state.Board...),
		Actions:   append([]domain.ActionRecord(nil), state.Actions...),
	}
}

func TestReplayRejectsRewrittenAmount(t *testing.T) {
	t.Parallel()

	engine, state := startedHand(t, 9)
	state = mustApply(t, engine, state, domain.ActionCall, nil)
	state = mustApply(t, engine, state, domain.ActionFold, nil)

	input := replayInput(state)
	require.Equal(t, domain.ActionCall, input.Actions[0].Kind)
	input.Actions[0].Amount += 40

	_, err := Replay(input)
	require.ErrorIs(t, err, ErrInvalidHandRecord)
}
