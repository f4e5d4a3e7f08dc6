// Package service implements the settlement and history operations behind
// the HTTP API: replaying submitted hands, computing winnings and storing them.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
	"github.com/imaddar/poker-arena/services/holdem/internal/persistence"
	"github.com/imaddar/poker-arena/services/holdem/internal/rules"
	"github.com/imaddar/poker-arena/services/holdem/internal/settlement"
	"github.com/imaddar/poker-arena/services/holdem/internal/statemachine"
	"github.com/imaddar/poker-arena/services/holdem/internal/transcript"
)

var (
	ErrInvalidRequest    = errors.New("invalid hand request")
	ErrHandAlreadyExists = persistence.ErrHandAlreadyExists
	ErrHandNotFound      = persistence.ErrHandNotFound
)

type HistoryLimits struct {
	Default int
	Max     int
}

// DefaultHistoryLimits matches the history endpoint's documented default.
func DefaultHistoryLimits() HistoryLimits {
	return HistoryLimits{Default: domain.DefaultHistoryLimit, Max: 100}
}

type Hands struct {
	repo   persistence.Repository
	clock  quartz.Clock
	logger *log.Logger
	limits HistoryLimits
}

func NewHands(repo persistence.Repository, clock quartz.Clock, logger *log.Logger, limits HistoryLimits) *Hands {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = log.Default()
	}
	if limits.Default <= 0 {
		limits.Default = domain.DefaultHistoryLimit
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &Hands{repo: repo, clock: clock, logger: logger.WithPrefix("hands"), limits: limits}
}

// Create replays the submitted hand, settles it and stores the result. The
// hand must have been played to completion.
func (h *Hands) Create(ctx context.Context, req settlement.Request) (settlement.Response, error) {
	if req.HandID == "" {
		return settlement.Response{}, fmt.Errorf("%w: hand_id is required", ErrInvalidRequest)
	}
	if err := checkPositions(req); err != nil {
		return settlement.Response{}, err
	}
	exists, err := h.repo.HandExists(ctx, req.HandID)
	if err != nil {
		return settlement.Response{}, fmt.Errorf("check hand %s: %w", req.HandID, err)
	}
	if exists {
		return settlement.Response{}, fmt.Errorf("%w: %s", ErrHandAlreadyExists, req.HandID)
	}

	state, err := replayRequest(req)
	if err != nil {
		return settlement.Response{}, err
	}
	if !state.Complete {
		return settlement.Response{}, fmt.Errorf("%w: %w: %s", ErrInvalidRequest, settlement.ErrHandIncomplete, req.HandID)
	}
	winnings := rules.CalculateWinnings(state)

	record := persistence.HandRecord{
		HandID:             req.HandID,
		StackSize:          req.StackSize,
		DealerPosition:     req.DealerPosition,
		SmallBlindPosition: req.SmallBlindPosition,
		BigBlindPosition:   req.BigBlindPosition,
		PlayerCards:        req.PlayerCards,
		Actions:            state.Actions,
		ActionsShort:       rules.ShortActions(state.Actions),
		BoardCards:         req.BoardCards,
		Winnings:           winnings,
		CreatedAt:          h.clock.Now().UTC(),
	}
	stored, err := h.repo.CreateHand(ctx, record)
	if err != nil {
		if errors.Is(err, persistence.ErrHandAlreadyExists) {
			return settlement.Response{}, fmt.Errorf("%w: %s", ErrHandAlreadyExists, req.HandID)
		}
		return settlement.Response{}, fmt.Errorf("store hand %s: %w", req.HandID, err)
	}

	h.logger.Info("Hand stored", "hand", stored.HandID, "id", stored.ID, "actions", stored.ActionsShort)
	return toResponse(stored), nil
}

// Submit lets the service settle hands in-process, in place of an HTTP client.
func (h *Hands) Submit(ctx context.Context, req settlement.Request) (settlement.Response, error) {
	resp, err := h.Create(ctx, req)
	if errors.Is(err, ErrHandAlreadyExists) {
		return settlement.Response{}, fmt.Errorf("%w: %w", settlement.ErrAlreadySaved, err)
	}
	return resp, err
}

func (h *Hands) Get(ctx context.Context, handID string) (settlement.Response, error) {
	record, ok, err := h.repo.GetHand(ctx, handID)
	if err != nil {
		return settlement.Response{}, fmt.Errorf("load hand %s: %w", handID, err)
	}
	if !ok {
		return settlement.Response{}, fmt.Errorf("%w: %s", ErrHandNotFound, handID)
	}
	return toResponse(record), nil
}

// List returns the most recent hands rendered as transcripts. A limit of
// zero or less uses the default; larger limits are clamped.
func (h *Hands) List(ctx context.Context, limit int) ([]settlement.HistoryEntry, error) {
	limit = h.ClampLimit(limit)
	records, err := h.repo.ListRecentHands(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list hands: %w", err)
	}

	out := make([]settlement.HistoryEntry, 0, len(records))
	for _, record := range records {
		lines, err := DisplayLines(record)
		if err != nil {
			h.logger.Warn("Skipping unreadable hand", "hand", record.HandID, "error", err)
			continue
		}
		out = append(out, settlement.HistoryEntry{
			HandID:       record.HandID,
			DisplayLines: lines,
			CreatedAt:    record.CreatedAt,
		})
	}
	return out, nil
}

func (h *Hands) ClampLimit(limit int) int {
	if limit <= 0 {
		return h.limits.Default
	}
	return min(limit, h.limits.Max)
}

func (h *Hands) Delete(ctx context.Context, handID string) error {
	if err := h.repo.DeleteHand(ctx, handID); err != nil {
		if errors.Is(err, persistence.ErrHandNotFound) {
			return fmt.Errorf("%w: %s", ErrHandNotFound, handID)
		}
		return fmt.Errorf("delete hand %s: %w", handID, err)
	}
	h.logger.Info("Hand deleted", "hand", handID)
	return nil
}

// Healthy reports whether the backing store is reachable.
func (h *Hands) Healthy(ctx context.Context) error {
	return h.repo.Ping(ctx)
}

// DisplayLines replays a stored hand and renders its transcript with the
// stored winnings.
func DisplayLines(record persistence.HandRecord) ([]string, error) {
	state, err := replayRequest(settlement.Request{
		HandID:      record.HandID,
		StackSize:   record.StackSize,
		PlayerCards: record.PlayerCards,
		Actions:     record.Actions,
		BoardCards:  record.BoardCards,
	})
	if err != nil {
		return nil, err
	}
	state.Settlement = record.Winnings
	return transcript.Format(state), nil
}

// checkPositions rejects records whose button and blinds differ from the
// fixed table layout used to replay them.
func checkPositions(req settlement.Request) error {
	if req.DealerPosition != int(domain.DealerSeat) ||
		req.SmallBlindPosition != int(domain.SmallBlindSeat) ||
		req.BigBlindPosition != int(domain.BigBlindSeat) {
		return fmt.Errorf("%w: positions %d/%d/%d, table uses %d/%d/%d", ErrInvalidRequest,
			req.DealerPosition, req.SmallBlindPosition, req.BigBlindPosition,
			domain.DealerSeat, domain.SmallBlindSeat, domain.BigBlindSeat)
	}
	return nil
}

func replayRequest(req settlement.Request) (domain.HandState, error) {
	input, err := req.ReplayInput()
	if err != nil {
		return domain.HandState{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	state, err := statemachine.Replay(input)
	if err != nil {
		return domain.HandState{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return state, nil
}

func toResponse(record persistence.HandRecord) settlement.Response {
	return settlement.Response{
		ID:                 record.ID,
		HandID:             record.HandID,
		StackSize:          record.StackSize,
		DealerPosition:     record.DealerPosition,
		SmallBlindPosition: record.SmallBlindPosition,
		BigBlindPosition:   record.BigBlindPosition,
		PlayerCards:        record.PlayerCards,
		Actions:            record.ActionsShort,
		BoardCards:         record.BoardCards,
		Winnings:           settlement.FormatWinnings(record.Winnings),
		CreatedAt:          record.CreatedAt,
	}
}
