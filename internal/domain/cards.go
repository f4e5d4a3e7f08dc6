package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	cardRanks = "AKQJT98765432"
	cardSuits = "shdc"
	DeckSize  = len(cardRanks) * len(cardSuits)
)

var ErrInvalidCard = errors.New("invalid card")

// Card is a two-character code: rank (AKQJT98765432) then suit (shdc), e.g. "Td".
type Card string

func ParseCard(value string) (Card, error) {
	if len(value) != 2 || !strings.ContainsRune(cardRanks, rune(value[0])) || !strings.ContainsRune(cardSuits, rune(value[1])) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCard, value)
	}
	return Card(value), nil
}

// ParseCards splits a concatenated card string such as "AsKd7h" into cards.
func ParseCards(value string) ([]Card, error) {
	if len(value)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length card string %q", ErrInvalidCard, value)
	}
	cards := make([]Card, 0, len(value)/2)
	for i := 0; i < len(value); i += 2 {
		card, err := ParseCard(value[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func JoinCards(cards []Card) string {
	var builder strings.Builder
	builder.Grow(len(cards) * 2)
	for _, card := range cards {
		builder.WriteString(string(card))
	}
	return builder.String()
}

// Standard52Deck lists every card, aces first, spades-hearts-diamonds-clubs within a rank.
func Standard52Deck() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, rank := range cardRanks {
		for _, suit := range cardSuits {
			cards = append(cards, Card(string(rank)+string(suit)))
		}
	}
	return cards
}

type CardSet map[Card]struct{}

func NewCardSet(cards ...Card) CardSet {
	set := make(CardSet, DeckSize)
	for _, card := range cards {
		set[card] = struct{}{}
	}
	return set
}

func (s CardSet) Has(card Card) bool {
	_, ok := s[card]
	return ok
}

func (s CardSet) Add(cards ...Card) {
	for _, card := range cards {
		s[card] = struct{}{}
	}
}

// UsedCards collects every hole and board card already attributed in the hand.
func (h HandState) UsedCards() CardSet {
	used := NewCardSet(h.Board...)
	for _, seat := range h.Seats {
		used.Add(seat.HoleCards...)
	}
	return used
}
