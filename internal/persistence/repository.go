// Package persistence stores settled hands.
package persistence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

var (
	ErrHandNotFound      = errors.New("hand not found")
	ErrHandAlreadyExists = errors.New("hand already exists")
)

// HandRecord is one settled hand. ID and CreatedAt are assigned on insert
// when left zero.
type HandRecord struct {
	ID                 int64
	HandID             string
	StackSize          uint32
	DealerPosition     int
	SmallBlindPosition int
	BigBlindPosition   int
	PlayerCards        map[string]string
	Actions            []domain.ActionRecord
	ActionsShort       string
	BoardCards         *string
	Winnings           domain.Settlement
	CreatedAt          time.Time
}

type Repository interface {
	CreateHand(ctx context.Context, record HandRecord) (HandRecord, error)
	GetHand(ctx context.Context, handID string) (HandRecord, bool, error)
	HandExists(ctx context.Context, handID string) (bool, error)
	// ListRecentHands returns at most limit hands, newest first.
	ListRecentHands(ctx context.Context, limit int) ([]HandRecord, error)
	DeleteHand(ctx context.Context, handID string) error
	Ping(ctx context.Context) error
}

type inMemoryRepository struct {
	mu sync.RWMutex

	nextID int64
	hands  map[string]HandRecord
}

func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		hands: make(map[string]HandRecord),
	}
}

func (r *inMemoryRepository) CreateHand(_ context.Context, record HandRecord) (HandRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hands[record.HandID]; exists {
		return HandRecord{}, ErrHandAlreadyExists
	}
	r.nextID++
	stored := cloneHandRecord(record)
	stored.ID = r.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.hands[record.HandID] = stored
	return cloneHandRecord(stored), nil
}

func (r *inMemoryRepository) GetHand(_ context.Context, handID string) (HandRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.hands[handID]
	if !ok {
		return HandRecord{}, false, nil
	}
	return cloneHandRecord(record), true, nil
}

func (r *inMemoryRepository) HandExists(_ context.Context, handID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hands[handID]
	return ok, nil
}

func (r *inMemoryRepository) ListRecentHands(_ context.Context, limit int) ([]HandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hands := make([]HandRecord, 0, len(r.hands))
	for _, record := range r.hands {
		hands = append(hands, record)
	}
	sort.Slice(hands, func(i, j int) bool {
		if hands[i].CreatedAt.Equal(hands[j].CreatedAt) {
			return hands[i].ID > hands[j].ID
		}
		return hands[i].CreatedAt.After(hands[j].CreatedAt)
	})
	if limit >= 0 && len(hands) > limit {
		hands = hands[:limit]
	}
	out := make([]HandRecord, 0, len(hands))
	for _, record := range hands {
		out = append(out, cloneHandRecord(record))
	}
	return out, nil
}

func (r *inMemoryRepository) DeleteHand(_ context.Context, handID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hands[handID]; !exists {
		return ErrHandNotFound
	}
	delete(r.hands, handID)
	return nil
}

func (r *inMemoryRepository) Ping(context.Context) error {
	return nil
}

func cloneHandRecord(record HandRecord) HandRecord {
	out := record
	if record.PlayerCards != nil {
		out.PlayerCards = make(map[string]string, len(record.PlayerCards))
		for seat, cards := range record.PlayerCards {
			out.PlayerCards[seat] = cards
		}
	}
	out.Actions = append([]domain.ActionRecord(nil), record.Actions...)
	if record.BoardCards != nil {
		board := *record.BoardCards
		out.BoardCards = &board
	}
	if record.Winnings != nil {
		out.Winnings = make(domain.Settlement, len(record.Winnings))
		for seat, amount := range record.Winnings {
			out.Winnings[seat] = amount
		}
	}
	return out
}
