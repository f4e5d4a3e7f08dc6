package rules

import (
	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

// CalculateWinnings settles a finished hand without ranking cards: every seat
// still in the hand takes an equal share of all chips put in, remainder chips
// going to the lowest seat numbers first. Folded seats lose what they put in.
// The result always sums to zero.
func CalculateWinnings(state domain.HandState) domain.Settlement {
	contributions := make(map[domain.SeatNo]int64, len(state.Seats))
	var pot int64
	live := make([]domain.SeatNo, 0, len(state.Seats))
	for _, seat := range state.Seats {
		contribution := int64(state.StackSize) - int64(seat.Stack)
		if contribution < 0 {
			contribution = 0
		}
		contributions[seat.SeatNo] = contribution
		pot += contribution
		if !seat.Folded {
			live = append(live, seat.SeatNo)
		}
	}

	winnings := make(domain.Settlement, len(state.Seats))
	if len(live) == 0 {
		for seatNo, contribution := range contributions {
			winnings[seatNo] = -contribution
		}
		return winnings
	}

	share := pot / int64(len(live))
	odd := pot % int64(len(live))
	awarded := make(map[domain.SeatNo]int64, len(live))
	for i, seatNo := range live {
		awarded[seatNo] = share
		if int64(i) < odd {
			awarded[seatNo]++
		}
	}
	for seatNo, contribution := range contributions {
		winnings[seatNo] = awarded[seatNo] - contribution
	}
	return winnings
}
