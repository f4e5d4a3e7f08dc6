// Package settlement hands completed hands to the settlement service and
// merges the returned winnings back into the hand exactly once.
package settlement

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
)

const minPlayerCardsLen = 4

var (
	ErrHandIncomplete   = errors.New("hand is not complete")
	ErrNoCards          = errors.New("hand has no dealt cards")
	ErrInvalidWinnings  = errors.New("invalid winnings")
	ErrInvalidSeatKey   = errors.New("invalid seat key")
	ErrInvalidCardField = errors.New("invalid card field")
)

// Request is the body of POST /api/v1/hands/.
type Request struct {
	HandID             string                `json:"hand_id"`
	StackSize          uint32                `json:"stack_size"`
	DealerPosition     int                   `json:"dealer_position"`
	SmallBlindPosition int                   `json:"small_blind_position"`
	BigBlindPosition   int                   `json:"big_blind_position"`
	PlayerCards        map[string]string     `json:"player_cards"`
	Actions            []domain.ActionRecord `json:"actions"`
	BoardCards         *string               `json:"board_cards"`
}

// Response is a stored hand as returned by the service.
type Response struct {
	ID                 int64             `json:"id"`
	HandID             string            `json:"hand_id"`
	StackSize          uint32            `json:"stack_size"`
	DealerPosition     int               `json:"dealer_position"`
	SmallBlindPosition int               `json:"small_blind_position"`
	BigBlindPosition   int               `json:"big_blind_position"`
	PlayerCards        map[string]string `json:"player_cards"`
	Actions            string            `json:"actions"`
	BoardCards         *string           `json:"board_cards"`
	Winnings           map[string]int64  `json:"winnings"`
	CreatedAt          time.Time         `json:"created_at"`
}

type HistoryEntry struct {
	HandID       string    `json:"hand_id"`
	DisplayLines []string  `json:"display_lines"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildRequest describes a completed hand for settlement.
func BuildRequest(state domain.HandState) (Request, error) {
	if !state.Complete {
		return Request{}, fmt.Errorf("%w: hand %s", ErrHandIncomplete, state.HandID)
	}
	if !state.Dealt() {
		return Request{}, fmt.Errorf("%w: hand %s", ErrNoCards, state.HandID)
	}

	cards := make(map[string]string, len(state.Seats))
	for _, seat := range state.Seats {
		if joined := domain.JoinCards(seat.HoleCards); len(joined) >= minPlayerCardsLen {
			cards[strconv.Itoa(int(seat.SeatNo))] = joined
		}
	}

	var board *string
	if len(state.Board) > 0 {
		joined := domain.JoinCards(state.Board)
		board = &joined
	}

	return Request{
		HandID:             state.HandID,
		StackSize:          state.StackSize,
		DealerPosition:     int(state.DealerSeat),
		SmallBlindPosition: int(state.SmallBlindSeat),
		BigBlindPosition:   int(state.BigBlindSeat),
		PlayerCards:        cards,
		Actions:            append([]domain.ActionRecord(nil), state.Actions...),
		BoardCards:         board,
	}, nil
}

// ReplayInput converts the request into the form the engine replays.
func (r Request) ReplayInput() (statemachine.ReplayInput, error) {
	hole := make(map[domain.SeatNo][]domain.Card, len(r.PlayerCards))
	for key, value := range r.PlayerCards {
		seatNo, err := ParseSeatKey(key)
		if err != nil {
			return statemachine.ReplayInput{}, err
		}
		cards, err := domain.ParseCards(value)
		if err != nil {
			return statemachine.ReplayInput{}, fmt.Errorf("%w: seat %d: %w", ErrInvalidCardField, seatNo, err)
		}
		hole[seatNo] = cards
	}

	var board []domain.Card
	if r.BoardCards != nil {
		parsed, err := domain.ParseCards(*r.BoardCards)
		if err != nil {
			return statemachine.ReplayInput{}, fmt.Errorf("%w: board: %w", ErrInvalidCardField, err)
		}
		board = parsed
	}

	return statemachine.ReplayInput{
		HandID:    r.HandID,
		StackSize: r.StackSize,
		HoleCards: hole,
		Board:     board,
		Actions:   append([]domain.ActionRecord(nil), r.Actions...),
	}, nil
}

func ParseSeatKey(key string) (domain.SeatNo, error) {
	value, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeatKey, key)
	}
	seatNo, err := domain.NewSeatNo(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSeatKey, err)
	}
	return seatNo, nil
}

// ParseWinnings converts the wire winnings map into a settlement.
func ParseWinnings(winnings map[string]int64) (domain.Settlement, error) {
	if len(winnings) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidWinnings)
	}
	settlement := make(domain.Settlement, len(winnings))
	for key, amount := range winnings {
		seatNo, err := ParseSeatKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWinnings, err)
		}
		settlement[seatNo] = amount
	}
	return settlement, nil
}

// FormatWinnings is the inverse of ParseWinnings.
func FormatWinnings(settlement domain.Settlement) map[string]int64 {
	out := make(map[string]int64, len(settlement))
	for seatNo, amount := range settlement {
		out[strconv.Itoa(int(seatNo))] = amount
	}
	return out
}
