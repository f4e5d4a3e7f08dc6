package rules

import (
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	rand "math/rand/v2"
	"sync"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

var (
	ErrDeckExhausted = errors.New("deck exhausted")
	ErrCardReused    = errors.New("card already dealt")
)

// CardSource draws cards without replacement. Draw must add every card it
// returns to used.
type CardSource interface {
	Draw(n int, used domain.CardSet) ([]domain.Card, error)
}

// Rand is the subset of *rand.Rand the random source needs.
type Rand interface {
	IntN(n int) int
}

type randomSource struct {
	mu   sync.Mutex
	pick func(n int) (int, error)
}

// NewRandomSource draws uniformly from the unused cards using rng.
func NewRandomSource(rng Rand) CardSource {
	return &randomSource{pick: func(n int) (int, error) { return rng.IntN(n), nil }}
}

// NewSeededRand returns a reproducible generator for seed.
func NewSeededRand(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewSeededSource returns a reproducible random source.
func NewSeededSource(seed int64) CardSource {
	return NewRandomSource(NewSeededRand(seed))
}

func NewCryptoSource() CardSource {
	return &randomSource{pick: func(n int) (int, error) {
		v, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(n)))
		if err != nil {
			return 0, fmt.Errorf("crypto draw failed: %w", err)
		}
		return int(v.Int64()), nil
	}}
}

func (s *randomSource) Draw(n int, used domain.CardSet) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := make([]domain.Card, 0, domain.DeckSize)
	for _, card := range domain.Standard52Deck() {
		if !used.Has(card) {
			remaining = append(remaining, card)
		}
	}
	if n > len(remaining) {
		return nil, fmt.Errorf("%w: want %d cards, %d remain", ErrDeckExhausted, n, len(remaining))
	}

	drawn := make([]domain.Card, 0, n)
	for i := 0; i < n; i++ {
		idx, err := s.pick(len(remaining))
		if err != nil {
			return nil, err
		}
		card := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		drawn = append(drawn, card)
	}
	used.Add(drawn...)
	return drawn, nil
}

// ScriptedSource hands out a fixed card sequence in order. It is how tests pin
// a deal and how stored hands are replayed.
type ScriptedSource struct {
	mu    sync.Mutex
	cards []domain.Card
}

func NewScriptedSource(cards ...domain.Card) *ScriptedSource {
	return &ScriptedSource{cards: append([]domain.Card(nil), cards...)}
}

func (s *ScriptedSource) Draw(n int, used domain.CardSet) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.cards) {
		return nil, fmt.Errorf("%w: want %d cards, %d scripted", ErrDeckExhausted, n, len(s.cards))
	}
	drawn := make([]domain.Card, 0, n)
	seen := domain.NewCardSet()
	for _, card := range s.cards[:n] {
		if used.Has(card) || seen.Has(card) {
			return nil, fmt.Errorf("%w: %s", ErrCardReused, card)
		}
		seen.Add(card)
		drawn = append(drawn, card)
	}
	s.cards = s.cards[n:]
	used.Add(drawn...)
	return drawn, nil
}

// Remaining reports how many scripted cards have not been drawn.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
