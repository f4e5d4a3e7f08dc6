package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
	"github.com/imaddar/poker-arena/services/holdem/internal/transcript"
)

type tableStyles struct {
	Header    lipgloss.Style
	SubHeader lipgloss.Style
	Action    lipgloss.Style
	Fallback  lipgloss.Style
	Winner    lipgloss.Style
	Loser     lipgloss.Style
	CardRed   lipgloss.Style
	CardBlack lipgloss.Style
	Pot       lipgloss.Style
	Acting    lipgloss.Style
	Muted     lipgloss.Style
	Table     lipgloss.Style
	Box       lipgloss.Style
}

func newTableStyles() tableStyles {
	return tableStyles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 2).
			Bold(true),
		SubHeader: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true),
		Action: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#74B9FF")),
		Fallback: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")),
		Winner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Loser: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")),
		CardRed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),
		CardBlack: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true),
		Pot: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Acting: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")),
		Table: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#04B575")).
			Padding(0, 1),
		Box: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
	}
}

// renderTable draws the table as the acting seat sees it, with every seat's
// cards face up.
func renderTable(styles tableStyles, state domain.HandState) string {
	acting, _ := state.Acting()
	toCall := uint32(0)
	if state.CurrentBet > acting.Committed {
		toCall = state.CurrentBet - acting.Committed
	}

	lines := []string{
		styles.SubHeader.Render(fmt.Sprintf("Hand #%s", state.HandID)),
		fmt.Sprintf("Street: %s | %s | To Call: %d", state.Street, styles.Pot.Render(fmt.Sprintf("Pot: %d", transcript.PotDisplay(state))), toCall),
		fmt.Sprintf("Current Bet: %d | Min Raise To: %d", state.CurrentBet, statemachine.MinRaiseTo(state)),
		"Board: " + formatBoard(styles, state.Board),
		"",
	}
	for _, seat := range state.Seats {
		lines = append(lines, formatSeatLine(styles, seat, state))
	}
	lines = append(lines, "", "Options: "+formatOptions(statemachine.LegalActions(state)))

	return styles.Table.Render(strings.Join(lines, "\n")) + "\n"
}

func formatSeatLine(styles tableStyles, seat domain.Seat, state domain.HandState) string {
	marker := " "
	if seat.SeatNo == state.ActingSeat {
		marker = ">"
	}

	role := "  "
	switch seat.SeatNo {
	case state.DealerSeat:
		role = "D "
	case state.SmallBlindSeat:
		role = "SB"
	case state.BigBlindSeat:
		role = "BB"
	}

	extras := make([]string, 0, 2)
	if seat.Folded {
		extras = append(extras, "folded")
	}
	if seat.AllIn() {
		extras = append(extras, "all-in")
	}
	status := ""
	if len(extras) > 0 {
		status = " [" + strings.Join(extras, ", ") + "]"
	}

	line := fmt.Sprintf("%s %s Seat %d | %s | stack:%d | in:%d%s",
		marker,
		role,
		seat.SeatNo,
		formatCards(styles, seat.HoleCards),
		seat.Stack,
		seat.Committed,
		status,
	)
	switch {
	case seat.SeatNo == state.ActingSeat:
		return styles.Acting.Render(line)
	case seat.Folded:
		return styles.Muted.Render(line)
	default:
		return line
	}
}

func formatOptions(legal []domain.ActionKind) string {
	labels := make([]string, 0, len(legal))
	for _, kind := range legal {
		switch kind {
		case domain.ActionFold:
			labels = append(labels, "fold(f)")
		case domain.ActionCheck:
			labels = append(labels, "check(k)")
		case domain.ActionCall:
			labels = append(labels, "call(c)")
		case domain.ActionBet:
			labels = append(labels, "bet(b) [amt]")
		case domain.ActionRaise:
			labels = append(labels, "raise(r) [to]")
		case domain.ActionAllIn:
			labels = append(labels, "allin(a)")
		default:
			labels = append(labels, string(kind))
		}
	}
	labels = append(labels, "quit(q)")
	return strings.Join(labels, " / ")
}

func formatBoard(styles tableStyles, board []domain.Card) string {
	formatted := make([]string, 0, domain.MaxBoardCards)
	for i := range domain.MaxBoardCards {
		if i < len(board) {
			formatted = append(formatted, formatCard(styles, board[i]))
			continue
		}
		formatted = append(formatted, styles.Muted.Render("--"))
	}
	return strings.Join(formatted, " ")
}

func formatCards(styles tableStyles, cards []domain.Card) string {
	if len(cards) == 0 {
		return styles.Muted.Render("-- --")
	}
	formatted := make([]string, 0, len(cards))
	for _, card := range cards {
		formatted = append(formatted, formatCard(styles, card))
	}
	return strings.Join(formatted, " ")
}

func formatCard(styles tableStyles, card domain.Card) string {
	value := string(card)
	if strings.HasSuffix(value, "h") || strings.HasSuffix(value, "d") {
		return styles.CardRed.Render(value)
	}
	return styles.CardBlack.Render(value)
}

func formatAction(action domain.Action) string {
	if action.Amount == nil {
		return string(action.Kind)
	}
	return fmt.Sprintf("%s %d", action.Kind, *action.Amount)
}

func describeAction(styles tableStyles, seat domain.SeatNo, action domain.Action, isFallback bool) string {
	if isFallback {
		return styles.Fallback.Render(fmt.Sprintf("seat %d -> %s (fallback)", seat, formatAction(action)))
	}
	return styles.Action.Render(fmt.Sprintf("seat %d -> %s", seat, formatAction(action)))
}

// renderHandLog prints the finished hand the way the history view shows it.
func renderHandLog(styles tableStyles, state domain.HandState) string {
	var b strings.Builder
	for _, line := range transcript.Format(state) {
		switch {
		case strings.HasPrefix(line, "Seat ") && strings.Contains(line, ": +"):
			b.WriteString(styles.Winner.Render(line))
		case strings.HasPrefix(line, "Seat ") && strings.Contains(line, ": -"):
			b.WriteString(styles.Loser.Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
