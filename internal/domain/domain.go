package domain

import (
	"errors"
	"fmt"
	"sort"
)

const (
	NumSeats            uint8  = 6
	SmallBlind          uint32 = 20
	BigBlind            uint32 = 40
	PostedBlinds        uint32 = SmallBlind + BigBlind
	DefaultStackSize    uint32 = 10_000
	DealerSeat          SeatNo = 3
	SmallBlindSeat      SeatNo = 4
	BigBlindSeat        SeatNo = 5
	FirstToActPreflop   SeatNo = 6
	FirstToActUndealt   SeatNo = 1
	HoleCardsPerSeat           = 2
	MaxBoardCards              = 5
	DefaultHistoryLimit        = 10
)

var (
	ErrInvalidStackSize  = errors.New("stack size must be greater than the big blind")
	ErrUnknownActionKind = errors.New("unknown action kind")
	ErrUnknownStreet     = errors.New("unknown street")
	ErrAmountNotAllowed  = errors.New("action amount is not allowed")
	ErrAmountRequired    = errors.New("action amount is required")
	ErrInvalidSeatNo     = errors.New("seat number out of range")
)

type Street string

const (
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

var streetOrder = []Street{StreetPreflop, StreetFlop, StreetTurn, StreetRiver, StreetShowdown}

func ParseStreet(value string) (Street, error) {
	for _, street := range streetOrder {
		if string(street) == value {
			return street, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStreet, value)
}

// Index reports the street's position in the betting order, or -1 if unknown.
func (s Street) Index() int {
	for i, street := range streetOrder {
		if street == s {
			return i
		}
	}
	return -1
}

// Next returns the street that follows s. ok is false for showdown and unknown streets.
func (s Street) Next() (next Street, ok bool) {
	idx := s.Index()
	if idx < 0 || idx == len(streetOrder)-1 {
		return s, false
	}
	return streetOrder[idx+1], true
}

// BoardSize is the number of community cards on the table once s has been dealt.
func (s Street) BoardSize() int {
	switch s {
	case StreetFlop:
		return 3
	case StreetTurn:
		return 4
	case StreetRiver, StreetShowdown:
		return 5
	default:
		return 0
	}
}

type ActionKind string

const (
	ActionFold  ActionKind = "fold"
	ActionCheck ActionKind = "check"
	ActionCall  ActionKind = "call"
	ActionBet   ActionKind = "bet"
	ActionRaise ActionKind = "raise"
	ActionAllIn ActionKind = "allin"
	ActionDeal  ActionKind = "deal"
)

var actionKinds = []ActionKind{ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise, ActionAllIn, ActionDeal}

func ParseActionKind(value string) (ActionKind, error) {
	for _, kind := range actionKinds {
		if string(kind) == value {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActionKind, value)
}

// IsPlayerAction is false for deal events, which only the street advancer records.
func (k ActionKind) IsPlayerAction() bool {
	switch k {
	case ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise, ActionAllIn:
		return true
	default:
		return false
	}
}

// Action is a requested player action. Amount is the target commitment for
// bet and raise; bet falls back to the big blind when it is absent.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount *uint32    `json:"amount,omitempty"`
}

func NewAction(kind ActionKind, amount *uint32) (Action, error) {
	if !kind.IsPlayerAction() {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownActionKind, kind)
	}
	if kind == ActionRaise && amount == nil {
		return Action{}, fmt.Errorf("%w for %s", ErrAmountRequired, kind)
	}
	if kind != ActionBet && kind != ActionRaise && amount != nil {
		return Action{}, fmt.Errorf("%w for %s", ErrAmountNotAllowed, kind)
	}
	if amount != nil {
		value := *amount
		amount = &value
	}
	return Action{Kind: kind, Amount: amount}, nil
}

func MustAction(kind ActionKind, amount *uint32) Action {
	action, err := NewAction(kind, amount)
	if err != nil {
		panic(err)
	}
	return action
}

func Chips(value uint32) *uint32 {
	return &value
}

type SeatNo uint8

func NewSeatNo(value int) (SeatNo, error) {
	if value < 1 || value > int(NumSeats) {
		return 0, fmt.Errorf("%w: must be in range 1..=%d, got %d", ErrInvalidSeatNo, NumSeats, value)
	}
	return SeatNo(value), nil
}

// Index is the seat's position in HandState.Seats.
func (s SeatNo) Index() int {
	return int(s) - 1
}

// Next is the seat to the left, wrapping 6 back to 1.
func (s SeatNo) Next() SeatNo {
	return SeatNo(uint8(s)%NumSeats + 1)
}

type Seat struct {
	SeatNo    SeatNo `json:"seat_no"`
	HoleCards []Card `json:"hole_cards"`
	Stack     uint32 `json:"stack"`
	Committed uint32 `json:"committed"`
	HasActed  bool   `json:"has_acted"`
	Folded    bool   `json:"folded"`
}

func NewSeat(seatNo SeatNo, stack uint32) Seat {
	return Seat{
		SeatNo: seatNo,
		Stack:  stack,
	}
}

// AllIn is true for a seat still in the hand with nothing left to bet.
func (s Seat) AllIn() bool {
	return !s.Folded && s.Stack == 0
}

// CanAct is true for a seat that is still in the hand and has chips behind.
func (s Seat) CanAct() bool {
	return !s.Folded && s.Stack > 0
}

func (s Seat) Dealt() bool {
	return len(s.HoleCards) == HoleCardsPerSeat
}

// ActionRecord is one transcript entry. Seat is zero for deal events.
type ActionRecord struct {
	Street Street     `json:"round"`
	Seat   SeatNo     `json:"player,omitempty"`
	Kind   ActionKind `json:"action"`
	Amount uint32     `json:"amount,omitempty"`
	Cards  string     `json:"cards,omitempty"`
}

// Settlement maps each seat to its signed net chip result for a hand.
type Settlement map[SeatNo]int64

// Seats returns the settled seats in ascending order.
func (s Settlement) Seats() []SeatNo {
	seats := make([]SeatNo, 0, len(s))
	for seat := range s {
		seats = append(seats, seat)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i] < seats[j] })
	return seats
}

func (s Settlement) Total() int64 {
	var total int64
	for _, amount := range s {
		total += amount
	}
	return total
}

type HandState struct {
	HandID         string         `json:"hand_id"`
	StackSize      uint32         `json:"stack_size"`
	Seats          []Seat         `json:"seats"`
	DealerSeat     SeatNo         `json:"dealer_seat"`
	SmallBlindSeat SeatNo         `json:"small_blind_seat"`
	BigBlindSeat   SeatNo         `json:"big_blind_seat"`
	ActingSeat     SeatNo         `json:"acting_seat"`
	Pot            uint32         `json:"pot"`
	CurrentBet     uint32         `json:"current_bet"`
	Street         Street         `json:"street"`
	Board          []Card         `json:"board"`
	Actions        []ActionRecord `json:"actions"`
	Complete       bool           `json:"complete"`
	Settlement     Settlement     `json:"settlement,omitempty"`
}

// NewHandState builds the undealt configuration state: six seats holding
// stackSize chips each, nobody to act but seat 1, nothing in the pot.
func NewHandState(handID string, stackSize uint32) (HandState, error) {
	if stackSize <= BigBlind {
		return HandState{}, fmt.Errorf("%w: got %d", ErrInvalidStackSize, stackSize)
	}

	seats := make([]Seat, 0, NumSeats)
	for i := 1; i <= int(NumSeats); i++ {
		seats = append(seats, NewSeat(SeatNo(i), stackSize))
	}

	return HandState{
		HandID:         handID,
		StackSize:      stackSize,
		Seats:          seats,
		DealerSeat:     DealerSeat,
		SmallBlindSeat: SmallBlindSeat,
		BigBlindSeat:   BigBlindSeat,
		ActingSeat:     FirstToActUndealt,
		Street:         StreetPreflop,
		Board:          make([]Card, 0, MaxBoardCards),
		Actions:        make([]ActionRecord, 0, 32),
	}, nil
}

// Dealt reports whether hole cards have been dealt to any seat.
func (h HandState) Dealt() bool {
	for _, seat := range h.Seats {
		if len(seat.HoleCards) > 0 {
			return true
		}
	}
	return false
}

// Seat returns the seat with the given number.
func (h HandState) Seat(seatNo SeatNo) (Seat, bool) {
	idx := seatNo.Index()
	if idx < 0 || idx >= len(h.Seats) {
		return Seat{}, false
	}
	return h.Seats[idx], true
}

func (h HandState) Acting() (Seat, bool) {
	return h.Seat(h.ActingSeat)
}

func (h HandState) LiveSeats() int {
	count := 0
	for _, seat := range h.Seats {
		if !seat.Folded {
			count++
		}
	}
	return count
}

func (h HandState) CommittedTotal() uint32 {
	var total uint32
	for _, seat := range h.Seats {
		total += seat.Committed
	}
	return total
}

// Settled is true once the external settlement has been merged in.
func (h HandState) Settled() bool {
	return h.Settlement != nil
}

// Clone returns a copy sharing no slices or maps with h.
func (h HandState) Clone() HandState {
	cloned := h
	cloned.Seats = make([]Seat, len(h.Seats))
	for i, seat := range h.Seats {
		seat.HoleCards = append([]Card(nil), seat.HoleCards...)
		cloned.Seats[i] = seat
	}
	cloned.Board = append(make([]Card, 0, MaxBoardCards), h.Board...)
	cloned.Actions = append([]ActionRecord(nil), h.Actions...)
	if h.Settlement != nil {
		cloned.Settlement = make(Settlement, len(h.Settlement))
		for seat, amount := range h.Settlement {
			cloned.Settlement[seat] = amount
		}
	}
	return cloned
}
