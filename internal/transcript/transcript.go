// Package transcript renders hand states as the play-by-play lines shown in
// the table log and in hand history.
package transcript

import (
	"fmt"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

const WaitingLine = "Waiting for game to start..."

// Format renders state line by line. Output depends only on state.
func Format(state domain.HandState) []string {
	if !state.Dealt() {
		return []string{WaitingLine}
	}

	lines := make([]string, 0, len(state.Seats)+len(state.Actions)+16)
	for _, seat := range state.Seats {
		if seat.Dealt() {
			lines = append(lines, fmt.Sprintf("Seat %d is dealt %s", seat.SeatNo, domain.JoinCards(seat.HoleCards)))
		}
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Seat %d is the dealer", state.DealerSeat),
		fmt.Sprintf("Seat %d posts small blind - %d chips", state.SmallBlindSeat, domain.SmallBlind),
		fmt.Sprintf("Seat %d posts big blind - %d chips", state.BigBlindSeat, domain.BigBlind),
	)

	var street domain.Street
	for _, record := range state.Actions {
		if record.Street != street {
			lines = append(lines, "")
			if record.Kind == domain.ActionDeal && record.Cards != "" {
				if heading := dealHeading(record); heading != "" {
					lines = append(lines, heading)
				}
			}
			street = record.Street
		}
		if record.Kind == domain.ActionDeal || record.Seat == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("Seat %d %s", record.Seat, verb(record)))
	}

	if !state.Complete {
		return lines
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Hand #%s ended", state.HandID),
		fmt.Sprintf("Final pot was %d", FinalPot(state)),
	)

	if state.Settled() {
		lines = append(lines, "", "Winnings:")
		for _, seatNo := range state.Settlement.Seats() {
			lines = append(lines, fmt.Sprintf("Seat %d: %s", seatNo, signed(state.Settlement[seatNo])))
		}
	}
	return lines
}

// FinalPot is the pot plus uncollected bets, less the posted blinds.
func FinalPot(state domain.HandState) int64 {
	return int64(state.Pot) + int64(state.CommittedTotal()) - int64(domain.PostedBlinds)
}

// PotDisplay is the in-play pot figure tables show, net of the posted blinds.
func PotDisplay(state domain.HandState) int64 {
	if !state.Dealt() {
		return 0
	}
	return int64(state.Pot) - int64(domain.PostedBlinds)
}

func dealHeading(record domain.ActionRecord) string {
	switch record.Street {
	case domain.StreetFlop:
		return "Flop cards dealt: " + record.Cards
	case domain.StreetTurn:
		return "Turn card dealt: " + record.Cards
	case domain.StreetRiver:
		return "River card dealt: " + record.Cards
	default:
		return ""
	}
}

func verb(record domain.ActionRecord) string {
	switch record.Kind {
	case domain.ActionFold:
		return "folds"
	case domain.ActionCheck:
		return "checks"
	case domain.ActionCall:
		return fmt.Sprintf("calls %d", record.Amount)
	case domain.ActionBet:
		return fmt.Sprintf("bets %d", record.Amount)
	case domain.ActionRaise:
		return fmt.Sprintf("raises to %d chips", record.Amount)
	case domain.ActionAllIn:
		return fmt.Sprintf("goes all-in for %d", record.Amount)
	default:
		return string(record.Kind)
	}
}

func signed(amount int64) string {
	if amount > 0 {
		return fmt.Sprintf("+%d", amount)
	}
	return fmt.Sprintf("%d", amount)
}
