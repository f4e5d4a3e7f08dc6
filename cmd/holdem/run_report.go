package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/tablerunner"
	"github.com/imaddar/poker-arena/services/holdem/internal/transcript"
)

type buildRunReportInput struct {
	Mode           string
	HandsRequested int
	StackSize      uint32
	Seed           *int64
	Settling       bool
	Result         tablerunner.RunHandsResult
}

type runReport struct {
	Mode           string          `json:"mode"`
	Seed           *int64          `json:"seed,omitempty"`
	StackSize      uint32          `json:"stack_size"`
	Settling       bool            `json:"settling"`
	HandsRequested int             `json:"hands_requested"`
	HandsCompleted int             `json:"hands_completed"`
	HandsSettled   int             `json:"hands_settled"`
	TotalActions   int             `json:"total_actions"`
	TotalFallbacks int             `json:"total_fallbacks"`
	Net            []runReportSeat `json:"net"`
	Hands          []runReportHand `json:"hands"`
}

type runReportSeat struct {
	SeatNo domain.SeatNo `json:"seat_no"`
	Amount int64         `json:"amount"`
}

type runReportAction struct {
	Street domain.Street     `json:"street"`
	Seat   domain.SeatNo     `json:"seat,omitempty"`
	Action domain.ActionKind `json:"action"`
	Amount uint32            `json:"amount,omitempty"`
	Cards  string            `json:"cards,omitempty"`
}

type runReportHand struct {
	HandNo      int               `json:"hand_no"`
	HandID      string            `json:"hand_id"`
	Street      domain.Street     `json:"street"`
	Actions     int               `json:"actions"`
	Fallbacks   int               `json:"fallbacks"`
	FinalPot    int64             `json:"final_pot"`
	Board       string            `json:"board"`
	Short       string            `json:"short"`
	Winnings    []runReportSeat   `json:"winnings,omitempty"`
	SettleError string            `json:"settle_error,omitempty"`
	Timeline    []runReportAction `json:"timeline"`
}

func buildRunReport(input buildRunReportInput) runReport {
	report := runReport{
		Mode:           input.Mode,
		Seed:           input.Seed,
		StackSize:      input.StackSize,
		Settling:       input.Settling,
		HandsRequested: input.HandsRequested,
		HandsCompleted: input.Result.HandsCompleted,
		HandsSettled:   input.Result.HandsSettled,
		TotalActions:   input.Result.TotalActions,
		TotalFallbacks: input.Result.TotalFallbacks,
		Net:            mapSettlement(input.Result.Net),
		Hands:          make([]runReportHand, 0, len(input.Result.HandSummaries)),
	}
	for _, summary := range input.Result.HandSummaries {
		report.Hands = append(report.Hands, buildRunReportHand(summary))
	}
	return report
}

func buildRunReportHand(summary tablerunner.HandSummary) runReportHand {
	state := summary.FinalState
	hand := runReportHand{
		HandNo:    summary.HandNo,
		HandID:    state.HandID,
		Street:    state.Street,
		Actions:   summary.ActionCount,
		Fallbacks: summary.FallbackCount,
		FinalPot:  transcript.FinalPot(state),
		Board:     domain.JoinCards(state.Board),
		Short:     rules.ShortActions(state.Actions),
		Timeline:  make([]runReportAction, 0, len(state.Actions)),
	}
	if state.Settled() {
		hand.Winnings = mapSettlement(state.Settlement)
	}
	if summary.SettleErr != nil {
		hand.SettleError = summary.SettleErr.Error()
	}
	for _, record := range state.Actions {
		hand.Timeline = append(hand.Timeline, runReportAction{
			Street: record.Street,
			Seat:   record.Seat,
			Action: record.Kind,
			Amount: record.Amount,
			Cards:  record.Cards,
		})
	}
	return hand
}

// mapSettlement lists seats in seat order, leaving out seats never seen.
func mapSettlement(settlement domain.Settlement) []runReportSeat {
	mapped := make([]runReportSeat, 0, len(settlement))
	for _, seatNo := range settlement.Seats() {
		mapped = append(mapped, runReportSeat{SeatNo: seatNo, Amount: settlement[seatNo]})
	}
	return mapped
}

func renderRunOutput(styles tableStyles, report runReport, withHands bool) string {
	var b strings.Builder

	header := []string{
		styles.Header.Render("♠ ♥ ♦ ♣  HOLD'EM SIMULATION  ♣ ♦ ♥ ♠"),
		fmt.Sprintf("Mode:    %s", report.Mode),
		fmt.Sprintf("Hands:   %d", report.HandsRequested),
		fmt.Sprintf("Stacks:  %d", report.StackSize),
	}
	if report.Seed != nil {
		header = append(header, fmt.Sprintf("Seed:    %d", *report.Seed))
	}
	b.WriteString(styles.Box.Render(strings.Join(header, "\n")))
	b.WriteString("\n\n")

	if withHands {
		for _, hand := range report.Hands {
			b.WriteString(renderHandSection(styles, hand))
		}
	}

	b.WriteString(renderRunCompletion(styles, report))
	return b.String()
}

func renderHandSection(styles tableStyles, hand runReportHand) string {
	board := hand.Board
	if board == "" {
		board = "(none)"
	}
	lines := []string{
		styles.SubHeader.Render(fmt.Sprintf("♠ HAND %d ♠  %s", hand.HandNo, hand.HandID)),
		fmt.Sprintf("Ended on: %-9s Actions: %-4d Fallbacks: %d", hand.Street, hand.Actions, hand.Fallbacks),
		fmt.Sprintf("%s  Board: %s", styles.Pot.Render(fmt.Sprintf("Final pot: %d", hand.FinalPot)), board),
		fmt.Sprintf("Actions: %s", hand.Short),
	}
	switch {
	case len(hand.Winnings) > 0:
		lines = append(lines, "Winnings:")
		lines = append(lines, formatSeatAmounts(styles, hand.Winnings)...)
	case hand.SettleError != "":
		lines = append(lines, styles.Fallback.Render("Not settled: "+hand.SettleError))
	}
	return styles.Table.Render(strings.Join(lines, "\n")) + "\n"
}

func renderRunCompletion(styles tableStyles, report runReport) string {
	lines := []string{
		styles.Header.Render("✓ RUN COMPLETE"),
		fmt.Sprintf("Hands Completed:  %d", report.HandsCompleted),
		fmt.Sprintf("Total Actions:    %d", report.TotalActions),
		fmt.Sprintf("Total Fallbacks:  %d", report.TotalFallbacks),
	}
	if report.Settling {
		lines = append(lines, fmt.Sprintf("Hands Settled:    %d", report.HandsSettled))
		if len(report.Net) > 0 {
			lines = append(lines, "Net:")
			lines = append(lines, formatSeatAmounts(styles, report.Net)...)
		}
	}
	return styles.Box.Render(strings.Join(lines, "\n")) + "\n"
}

// renderSessionSummary closes an interactive session.
func renderSessionSummary(styles tableStyles, result tablerunner.RunHandsResult, settling bool) string {
	return renderRunCompletion(styles, buildRunReport(buildRunReportInput{
		Mode:     "play",
		Settling: settling,
		Result:   result,
	}))
}

func formatSeatAmounts(styles tableStyles, amounts []runReportSeat) []string {
	lines := make([]string, 0, len(amounts))
	for _, seat := range amounts {
		line := fmt.Sprintf("  Seat %d: %+d", seat.SeatNo, seat.Amount)
		switch {
		case seat.Amount > 0:
			line = styles.Winner.Render("▲" + line)
		case seat.Amount < 0:
			line = styles.Loser.Render("▼" + line)
		default:
			line = "•" + line
		}
		lines = append(lines, line)
	}
	return lines
}

func writeRunReportJSON(path string, report runReport) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
