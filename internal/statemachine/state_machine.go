package statemachine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
)

var (
	ErrIllegalAction     = errors.New("illegal action")
	ErrHandComplete      = errors.New("hand already complete")
	ErrHandNotDealt      = errors.New("hand has not been dealt")
	ErrHandAlreadyDealt  = errors.New("hand already dealt")
	ErrInsufficientChips = errors.New("insufficient chips for action")
	ErrInvalidTransition = errors.New("invalid hand transition")
)

// Engine runs hands against one card source. All methods are pure apart from
// the cards the source hands out.
type Engine struct {
	source rules.CardSource
}

// NewEngine returns an engine drawing from source, or from crypto/rand when
// source is nil.
func NewEngine(source rules.CardSource) *Engine {
	if source == nil {
		source = rules.NewCryptoSource()
	}
	return &Engine{source: source}
}

type NewHandInput struct {
	HandID    string
	StackSize uint32
	DealCards bool
}

func (e *Engine) NewHand(input NewHandInput) (domain.HandState, error) {
	handID := input.HandID
	if handID == "" {
		handID = uuid.NewString()
	}
	state, err := domain.NewHandState(handID, input.StackSize)
	if err != nil {
		return domain.HandState{}, err
	}
	if !input.DealCards {
		return state, nil
	}

	used := domain.NewCardSet()
	for i := range state.Seats {
		cards, err := e.source.Draw(domain.HoleCardsPerSeat, used)
		if err != nil {
			return domain.HandState{}, fmt.Errorf("deal seat %d: %w", state.Seats[i].SeatNo, err)
		}
		state.Seats[i].HoleCards = cards
	}

	postBlind(&state, state.SmallBlindSeat, domain.SmallBlind)
	postBlind(&state, state.BigBlindSeat, domain.BigBlind)
	state.Pot = domain.PostedBlinds
	state.CurrentBet = domain.BigBlind
	state.ActingSeat = domain.FirstToActPreflop
	return state, nil
}

// WithStackSize re-stacks an undealt configuration state.
func WithStackSize(state domain.HandState, stackSize uint32) (domain.HandState, error) {
	if state.Dealt() {
		return state, ErrHandAlreadyDealt
	}
	if stackSize <= domain.BigBlind {
		return state, fmt.Errorf("%w: got %d", domain.ErrInvalidStackSize, stackSize)
	}
	next := state.Clone()
	next.StackSize = stackSize
	for i := range next.Seats {
		next.Seats[i].Stack = stackSize
	}
	return next, nil
}

// CanAct reports whether the acting seat may take action.
func CanAct(state domain.HandState, action domain.Action) bool {
	return ValidateAction(state, action) == nil
}

func ValidateAction(state domain.HandState, action domain.Action) error {
	if state.Complete {
		return ErrHandComplete
	}
	if !state.Dealt() {
		return ErrHandNotDealt
	}
	seat, ok := state.Acting()
	if !ok {
		return fmt.Errorf("%w: acting seat %d does not exist", ErrInvalidTransition, state.ActingSeat)
	}
	if seat.Folded {
		return fmt.Errorf("%w: seat %d has folded", ErrIllegalAction, seat.SeatNo)
	}
	if seat.Stack == 0 {
		return fmt.Errorf("%w: seat %d is all-in", ErrIllegalAction, seat.SeatNo)
	}

	switch action.Kind {
	case domain.ActionFold:
		if state.CurrentBet <= seat.Committed {
			return fmt.Errorf("%w: nothing to fold to", ErrIllegalAction)
		}
	case domain.ActionCheck:
		if seat.Committed != state.CurrentBet {
			return fmt.Errorf("%w: cannot check facing %d", ErrIllegalAction, state.CurrentBet-seat.Committed)
		}
	case domain.ActionCall:
		if state.CurrentBet <= seat.Committed {
			return fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
	case domain.ActionBet:
		if state.CurrentBet != 0 {
			return fmt.Errorf("%w: cannot bet into %d, raise instead", ErrIllegalAction, state.CurrentBet)
		}
		if amount := betAmount(action); seat.Stack < amount {
			return fmt.Errorf("%w: %w: bet %d with stack %d", ErrIllegalAction, ErrInsufficientChips, amount, seat.Stack)
		}
	case domain.ActionRaise:
		if state.CurrentBet == 0 {
			return fmt.Errorf("%w: nothing to raise, bet instead", ErrIllegalAction)
		}
		if action.Amount == nil {
			return fmt.Errorf("%w: %w", ErrIllegalAction, domain.ErrAmountRequired)
		}
		amount := *action.Amount
		if amount < MinRaiseTo(state) {
			return fmt.Errorf("%w: raise to %d below minimum %d", ErrIllegalAction, amount, MinRaiseTo(state))
		}
		if seat.Stack < amount-seat.Committed {
			return fmt.Errorf("%w: %w: raise to %d with stack %d", ErrIllegalAction, ErrInsufficientChips, amount, seat.Stack)
		}
	case domain.ActionAllIn:
	default:
		return fmt.Errorf("%w: %w: %q", ErrIllegalAction, domain.ErrUnknownActionKind, action.Kind)
	}
	return nil
}

// MinRaiseTo is the smallest legal raise target: double the current bet.
func MinRaiseTo(state domain.HandState) uint32 {
	return 2 * state.CurrentBet
}

// LegalActions lists the kinds the acting seat may take, with bet checked at
// its default size and raise at the minimum.
func LegalActions(state domain.HandState) []domain.ActionKind {
	candidates := []domain.Action{
		{Kind: domain.ActionFold},
		{Kind: domain.ActionCheck},
		{Kind: domain.ActionCall},
		{Kind: domain.ActionBet},
		{Kind: domain.ActionRaise, Amount: domain.Chips(MinRaiseTo(state))},
		{Kind: domain.ActionAllIn},
	}
	legal := make([]domain.ActionKind, 0, len(candidates))
	for _, candidate := range candidates {
		if CanAct(state, candidate) {
			legal = append(legal, candidate.Kind)
		}
	}
	return legal
}

// Apply validates and applies action for the acting seat. An illegal action
// leaves state untouched: the input is returned with the rejection reason.
func (e *Engine) Apply(state domain.HandState, action domain.Action) (domain.HandState, error) {
	if err := ValidateAction(state, action); err != nil {
		return state, err
	}

	next := state.Clone()
	idx := next.ActingSeat.Index()
	seat := &next.Seats[idx]
	record := domain.ActionRecord{Street: next.Street, Seat: seat.SeatNo, Kind: action.Kind}

	switch action.Kind {
	case domain.ActionFold:
		seat.Folded = true
	case domain.ActionCheck:
		seat.HasActed = true
	case domain.ActionCall:
		amount := min(next.CurrentBet-seat.Committed, seat.Stack)
		seat.Stack -= amount
		seat.Committed += amount
		seat.HasActed = true
		record.Amount = next.CurrentBet
	case domain.ActionBet:
		amount := betAmount(action)
		seat.Stack -= amount
		seat.Committed += amount
		seat.HasActed = true
		next.CurrentBet = amount
		reopenAction(next.Seats, idx)
		record.Amount = amount
	case domain.ActionRaise:
		amount := *action.Amount
		seat.Stack -= amount - seat.Committed
		seat.Committed = amount
		seat.HasActed = true
		next.CurrentBet = amount
		reopenAction(next.Seats, idx)
		record.Amount = amount
	case domain.ActionAllIn:
		total := seat.Stack + seat.Committed
		seat.Committed = total
		seat.Stack = 0
		seat.HasActed = true
		if total > next.CurrentBet {
			next.CurrentBet = total
			reopenAction(next.Seats, idx)
		}
		record.Amount = total
	default:
		return state, fmt.Errorf("%w: %q", ErrIllegalAction, action.Kind)
	}
	next.Actions = append(next.Actions, record)

	if next.LiveSeats() == 1 {
		return finish(next), nil
	}

	if RoundComplete(next) {
		return e.closeRound(state, next)
	}

	nextSeat, ok := NextActingSeat(next)
	if !ok {
		return e.closeRound(state, next)
	}
	next.ActingSeat = nextSeat
	return next, nil
}

func (e *Engine) closeRound(original, next domain.HandState) (domain.HandState, error) {
	if next.Street == domain.StreetRiver {
		return finish(next), nil
	}
	advanced, err := e.AdvanceStreet(next)
	if err != nil {
		return original, err
	}
	return advanced, nil
}

// RoundComplete reports whether the current betting round is closed. Seats
// with no chips left are exempt from having to act again.
func RoundComplete(state domain.HandState) bool {
	if state.LiveSeats() <= 1 {
		return true
	}

	if state.Street == domain.StreetPreflop && state.ActingSeat == state.BigBlindSeat && state.CurrentBet == domain.BigBlind {
		if bb, ok := state.Seat(state.BigBlindSeat); ok && !bb.HasActed {
			return false
		}
	}

	for _, seat := range state.Seats {
		if seat.Folded {
			continue
		}
		if seat.Stack == 0 {
			continue
		}
		if !seat.HasActed || seat.Committed != state.CurrentBet {
			return false
		}
	}
	return true
}

// NextActingSeat scans clockwise from the acting seat for a seat that is
// still in the hand and has chips. ok is false when a full cycle finds none.
func NextActingSeat(state domain.HandState) (domain.SeatNo, bool) {
	return nextSeat(state, state.ActingSeat)
}

// AdvanceStreet closes the betting round and moves to the next street,
// dealing the board. When fewer than two seats can still bet the board is
// run out to showdown.
func (e *Engine) AdvanceStreet(state domain.HandState) (domain.HandState, error) {
	if state.Complete {
		return state, ErrHandComplete
	}
	if !state.Dealt() {
		return state, ErrHandNotDealt
	}

	next := state.Clone()
	for {
		sweep(&next)
		for i := range next.Seats {
			if !next.Seats[i].Folded {
				next.Seats[i].HasActed = false
			}
		}
		next.CurrentBet = 0

		street, ok := next.Street.Next()
		if !ok {
			return state, fmt.Errorf("%w: no street after %s", ErrInvalidTransition, next.Street)
		}
		next.Street = street
		if street == domain.StreetShowdown {
			next.Complete = true
			return next, nil
		}

		count := street.BoardSize() - len(next.Board)
		cards, err := e.source.Draw(count, next.UsedCards())
		if err != nil {
			return state, fmt.Errorf("deal %s: %w", street, err)
		}
		next.Board = append(next.Board, cards...)
		next.Actions = append(next.Actions, domain.ActionRecord{
			Street: street,
			Kind:   domain.ActionDeal,
			Cards:  domain.JoinCards(cards),
		})

		if seatsAbleToAct(next) >= 2 {
			first, _ := nextSeat(next, next.DealerSeat)
			next.ActingSeat = first
			return next, nil
		}
	}
}

func nextSeat(state domain.HandState, from domain.SeatNo) (domain.SeatNo, bool) {
	seatNo := from
	for i := 0; i < int(domain.NumSeats); i++ {
		seatNo = seatNo.Next()
		seat, ok := state.Seat(seatNo)
		if ok && seat.CanAct() {
			return seatNo, true
		}
	}
	return from, false
}

func seatsAbleToAct(state domain.HandState) int {
	count := 0
	for _, seat := range state.Seats {
		if seat.CanAct() {
			count++
		}
	}
	return count
}

func postBlind(state *domain.HandState, seatNo domain.SeatNo, amount uint32) {
	seat := &state.Seats[seatNo.Index()]
	seat.Stack -= amount
	seat.Committed = amount
}

func betAmount(action domain.Action) uint32 {
	if action.Amount == nil || *action.Amount == 0 {
		return domain.BigBlind
	}
	return *action.Amount
}

func reopenAction(seats []domain.Seat, aggressorIdx int) {
	for i := range seats {
		if i != aggressorIdx && !seats[i].Folded {
			seats[i].HasActed = false
		}
	}
}

func sweep(state *domain.HandState) {
	for i := range state.Seats {
		state.Pot += state.Seats[i].Committed
		state.Seats[i].Committed = 0
	}
}

func finish(state domain.HandState) domain.HandState {
	sweep(&state)
	state.Complete = true
	return state
}
