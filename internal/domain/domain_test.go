package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActionRequiresAmountForRaise(t *testing.T) {
	t.Parallel()

	_, err := NewAction(ActionRaise, nil)
	require.ErrorIs(t, err, ErrAmountRequired)
}

func TestNewActionAllowsBetWithoutAmount(t *testing.T) {
	t.Parallel()

	action, err := NewAction(ActionBet, nil)
	require.NoError(t, err)
	assert.Nil(t, action.Amount)
}

func TestNewActionRejectsAmountForCall(t *testing.T) {
	t.Parallel()

	_, err := NewAction(ActionCall, Chips(40))
	require.ErrorIs(t, err, ErrAmountNotAllowed)
}

func TestNewActionRejectsDealAndUnknownKinds(t *testing.T) {
	t.Parallel()

	_, err := NewAction(ActionDeal, nil)
	require.ErrorIs(t, err, ErrUnknownActionKind)

	_, err = NewAction(ActionKind("raize"), Chips(80))
	require.ErrorIs(t, err, ErrUnknownActionKind)
}

func TestParseActionKindRejectsMisspelling(t *testing.T) {
	t.Parallel()

	kind, err := ParseActionKind("allin")
	require.NoError(t, err)
	assert.Equal(t, ActionAllIn, kind)

	_, err = ParseActionKind("all-in")
	assert.True(t, errors.Is(err, ErrUnknownActionKind))
}

func TestStreetOrder(t *testing.T) {
	t.Parallel()

	street := StreetPreflop
	seen := []Street{street}
	for {
		next, ok := street.Next()
		if !ok {
			break
		}
		require.Greater(t, next.Index(), street.Index())
		street = next
		seen = append(seen, street)
	}
	assert.Equal(t, []Street{StreetPreflop, StreetFlop, StreetTurn, StreetRiver, StreetShowdown}, seen)
}

func TestSeatNoNextWraps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SeatNo(1), SeatNo(6).Next())
	assert.Equal(t, SeatNo(4), SeatNo(3).Next())

	_, err := NewSeatNo(7)
	require.ErrorIs(t, err, ErrInvalidSeatNo)
}

func TestNewHandStateRejectsStackAtOrBelowBigBlind(t *testing.T) {
	t.Parallel()

	_, err := NewHandState("h1", BigBlind)
	require.ErrorIs(t, err, ErrInvalidStackSize)
}

func TestNewHandStateBuildsSixUndealtSeats(t *testing.T) {
	t.Parallel()

	state, err := NewHandState("h1", DefaultStackSize)
	require.NoError(t, err)

	require.Len(t, state.Seats, int(NumSeats))
	for i, seat := range state.Seats {
		assert.Equal(t, SeatNo(i+1), seat.SeatNo)
		assert.Equal(t, DefaultStackSize, seat.Stack)
		assert.Empty(t, seat.HoleCards)
	}
	assert.False(t, state.Dealt())
	assert.Equal(t, FirstToActUndealt, state.ActingSeat)
}

func TestCloneSharesNoMutableData(t *testing.T) {
	t.Parallel()

	state, err := NewHandState("h1", DefaultStackSize)
	require.NoError(t, err)
	state.Seats[0].HoleCards = []Card{"As", "Kd"}
	state.Board = append(state.Board, "2c", "3c", "4c")
	state.Actions = append(state.Actions, ActionRecord{Street: StreetPreflop, Seat: 6, Kind: ActionFold})
	state.Settlement = Settlement{1: 60, 5: -40, 4: -20}

	cloned := state.Clone()
	cloned.Seats[0].HoleCards[0] = "2d"
	cloned.Seats[1].Stack = 0
	cloned.Board[0] = "9h"
	cloned.Actions[0].Kind = ActionCheck
	cloned.Settlement[1] = 0

	assert.Equal(t, Card("As"), state.Seats[0].HoleCards[0])
	assert.Equal(t, DefaultStackSize, state.Seats[1].Stack)
	assert.Equal(t, Card("2c"), state.Board[0])
	assert.Equal(t, ActionFold, state.Actions[0].Kind)
	assert.Equal(t, int64(60), state.Settlement[1])
}

func TestParseCardsRoundTrip(t *testing.T) {
	t.Parallel()

	cards, err := ParseCards("AsKd7h")
	require.NoError(t, err)
	assert.Equal(t, []Card{"As", "Kd", "7h"}, cards)
	assert.Equal(t, "AsKd7h", JoinCards(cards))

	_, err = ParseCards("AsK")
	require.ErrorIs(t, err, ErrInvalidCard)
	_, err = ParseCards("1s")
	require.ErrorIs(t, err, ErrInvalidCard)
}

func TestStandard52DeckHasUniqueCards(t *testing.T) {
	t.Parallel()

	deck := Standard52Deck()
	require.Len(t, deck, DeckSize)
	assert.Len(t, NewCardSet(deck...), DeckSize)
	assert.Equal(t, Card("As"), deck[0])
	assert.Equal(t, Card("2c"), deck[len(deck)-1])
}

func TestSettlementSeatsSorted(t *testing.T) {
	t.Parallel()

	settlement := Settlement{5: -40, 1: 60, 4: -20}
	assert.Equal(t, []SeatNo{1, 4, 5}, settlement.Seats())
	assert.Zero(t, settlement.Total())
}
