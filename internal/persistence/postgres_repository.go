package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

const handColumns = `id, hand_id, stack_size, dealer_position, small_blind_position, big_blind_position,
  player_cards, actions, actions_short, board_cards, winnings, created_at`

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateHand(ctx context.Context, record HandRecord) (HandRecord, error) {
	playerCards, err := json.Marshal(nonNilCards(record.PlayerCards))
	if err != nil {
		return HandRecord{}, fmt.Errorf("marshal player cards: %w", err)
	}
	actions, err := json.Marshal(nonNilActions(record.Actions))
	if err != nil {
		return HandRecord{}, fmt.Errorf("marshal actions: %w", err)
	}
	winnings, err := json.Marshal(nonNilWinnings(record.Winnings))
	if err != nil {
		return HandRecord{}, fmt.Errorf("marshal winnings: %w", err)
	}
	var createdAt any
	if !record.CreatedAt.IsZero() {
		createdAt = record.CreatedAt.UTC()
	}

	const q = `
INSERT INTO hands (
  hand_id, stack_size, dealer_position, small_blind_position, big_blind_position,
  player_cards, actions, actions_short, board_cards, winnings, created_at
) VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8,$9,$10::jsonb,COALESCE($11::timestamptz, now()))
RETURNING ` + handColumns

	out, err := scanHand(r.db.QueryRowContext(ctx, q,
		record.HandID,
		int64(record.StackSize),
		record.DealerPosition,
		record.SmallBlindPosition,
		record.BigBlindPosition,
		string(playerCards),
		string(actions),
		record.ActionsShort,
		record.BoardCards,
		string(winnings),
		createdAt,
	))
	if isUniqueViolation(err) {
		return HandRecord{}, ErrHandAlreadyExists
	}
	if err != nil {
		return HandRecord{}, err
	}
	return out, nil
}

func (r *postgresRepository) GetHand(ctx context.Context, handID string) (HandRecord, bool, error) {
	const q = `SELECT ` + handColumns + ` FROM hands WHERE hand_id = $1`
	out, err := scanHand(r.db.QueryRowContext(ctx, q, handID))
	if errors.Is(err, sql.ErrNoRows) {
		return HandRecord{}, false, nil
	}
	if err != nil {
		return HandRecord{}, false, err
	}
	return out, true, nil
}

func (r *postgresRepository) HandExists(ctx context.Context, handID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM hands WHERE hand_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, handID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresRepository) ListRecentHands(ctx context.Context, limit int) ([]HandRecord, error) {
	if limit < 0 {
		limit = 0
	}
	const q = `SELECT ` + handColumns + ` FROM hands ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HandRecord, 0, limit)
	for rows.Next() {
		record, err := scanHand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepository) DeleteHand(ctx context.Context, handID string) error {
	const q = `DELETE FROM hands WHERE hand_id = $1`
	result, err := r.db.ExecContext(ctx, q, handID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrHandNotFound
	}
	return nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHand(row rowScanner) (HandRecord, error) {
	var (
		out         HandRecord
		stackSize   int64
		playerCards []byte
		actions     []byte
		board       sql.NullString
		winnings    []byte
	)
	if err := row.Scan(
		&out.ID,
		&out.HandID,
		&stackSize,
		&out.DealerPosition,
		&out.SmallBlindPosition,
		&out.BigBlindPosition,
		&playerCards,
		&actions,
		&out.ActionsShort,
		&board,
		&winnings,
		&out.CreatedAt,
	); err != nil {
		return HandRecord{}, err
	}
	out.StackSize = uint32(stackSize)
	out.CreatedAt = out.CreatedAt.UTC()
	if board.Valid {
		value := board.String
		out.BoardCards = &value
	}
	if err := json.Unmarshal(playerCards, &out.PlayerCards); err != nil {
		return HandRecord{}, fmt.Errorf("decode player_cards for hand %s: %w", out.HandID, err)
	}
	if err := json.Unmarshal(actions, &out.Actions); err != nil {
		return HandRecord{}, fmt.Errorf("decode actions for hand %s: %w", out.HandID, err)
	}
	if err := json.Unmarshal(winnings, &out.Winnings); err != nil {
		return HandRecord{}, fmt.Errorf("decode winnings for hand %s: %w", out.HandID, err)
	}
	return out, nil
}

func nonNilCards(cards map[string]string) map[string]string {
	if cards == nil {
		return map[string]string{}
	}
	return cards
}

func nonNilActions(actions []domain.ActionRecord) []domain.ActionRecord {
	if actions == nil {
		return []domain.ActionRecord{}
	}
	return actions
}

func nonNilWinnings(winnings domain.Settlement) domain.Settlement {
	if winnings == nil {
		return domain.Settlement{}
	}
	return winnings
}

func isUniqueViolation(err error) bool {
	return hasSQLState(err, "23505")
}

type sqlStateProvider interface {
	SQLState() string
}

func hasSQLState(err error, code string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return true
	}
	var stateErr sqlStateProvider
	if errors.As(err, &stateErr) && stateErr.SQLState() == code {
		return true
	}
	// Some drivers only surface SQLSTATE in the error text.
	return strings.Contains(err.Error(), "SQLSTATE "+code)
}
