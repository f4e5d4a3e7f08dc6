package statemachine

import (
	"errors"
	"fmt"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
)

var ErrInvalidHandRecord = errors.New("invalid hand record")

// ReplayInput is a recorded hand: the cards every seat held, the final board
// and the transcript as it was played.
type ReplayInput struct {
	HandID    string
	StackSize uint32
	HoleCards map[domain.SeatNo][]domain.Card
	Board     []domain.Card
	Actions   []domain.ActionRecord
}

// Replay rebuilds a hand by dealing the recorded cards and re-applying every
// player action. The rebuilt transcript must match the recorded one.
func Replay(input ReplayInput) (domain.HandState, error) {
	script := make([]domain.Card, 0, int(domain.NumSeats)*domain.HoleCardsPerSeat+len(input.Board))
	for i := 1; i <= int(domain.NumSeats); i++ {
		cards := input.HoleCards[domain.SeatNo(i)]
		if len(cards) != domain.HoleCardsPerSeat {
			return domain.HandState{}, fmt.Errorf("%w: seat %d has %d hole cards", ErrInvalidHandRecord, i, len(cards))
		}
		script = append(script, cards...)
	}
	script = append(script, input.Board...)
	source := rules.NewScriptedSource(script...)

	engine := NewEngine(source)
	state, err := engine.NewHand(NewHandInput{HandID: input.HandID, StackSize: input.StackSize, DealCards: true})
	if err != nil {
		return domain.HandState{}, fmt.Errorf("%w: %w", ErrInvalidHandRecord, err)
	}

	for i, record := range input.Actions {
		if record.Kind == domain.ActionDeal {
			continue
		}
		if !record.Kind.IsPlayerAction() {
			return domain.HandState{}, fmt.Errorf("%w: action %d has unknown kind %q", ErrInvalidHandRecord, i, record.Kind)
		}
		if record.Seat != state.ActingSeat {
			return domain.HandState{}, fmt.Errorf("%w: action %d by seat %d but seat %d is acting", ErrInvalidHandRecord, i, record.Seat, state.ActingSeat)
		}
		if record.Street != state.Street {
			return domain.HandState{}, fmt.Errorf("%w: action %d on %s but hand is on %s", ErrInvalidHandRecord, i, record.Street, state.Street)
		}

		state, err = engine.Apply(state, recordedAction(record))
		if err != nil {
			return domain.HandState{}, fmt.Errorf("%w: action %d: %w", ErrInvalidHandRecord, i, err)
		}
	}

	if err := matchTranscript(state.Actions, input.Actions); err != nil {
		return domain.HandState{}, err
	}
	if source.Remaining() != 0 {
		return domain.HandState{}, fmt.Errorf("%w: %d board cards were never dealt", ErrInvalidHandRecord, source.Remaining())
	}
	return state, nil
}

func recordedAction(record domain.ActionRecord) domain.Action {
	action := domain.Action{Kind: record.Kind}
	switch record.Kind {
	case domain.ActionBet, domain.ActionRaise:
		action.Amount = domain.Chips(record.Amount)
	default:
	}
	return action
}

func matchTranscript(replayed, recorded []domain.ActionRecord) error {
	if len(replayed) != len(recorded) {
		return fmt.Errorf("%w: replay produced %d records, %d recorded", ErrInvalidHandRecord, len(replayed), len(recorded))
	}
	for i := range replayed {
		got, want := replayed[i], recorded[i]
		if got.Street != want.Street || got.Seat != want.Seat || got.Kind != want.Kind || got.Cards != want.Cards || got.Amount != want.Amount {
			return fmt.Errorf("%w: record %d is %+v, replay produced %+v", ErrInvalidHandRecord, i, want, got)
		}
	}
	return nil
}
