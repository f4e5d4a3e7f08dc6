package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imaddar/poker-arena/services/holdem/internal/domain"
)

func runRepositoryContractTests(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Helper()

	t.Run("CreateAndGetRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		created, err := repo.CreateHand(ctx, sampleHandRecord("hand-1", createdAt))
		if err != nil {
			t.Fatalf("CreateHand failed: %v", err)
		}
		if created.ID <= 0 {
			t.Fatalf("expected positive id, got %d", created.ID)
		}

		got, ok, err := repo.GetHand(ctx, "hand-1")
		if err != nil {
			t.Fatalf("GetHand failed: %v", err)
		}
		if !ok {
			t.Fatal("expected hand to exist")
		}
		if got.ID != created.ID {
			t.Fatalf("expected id %d, got %d", created.ID, got.ID)
		}
		if got.StackSize != 10_000 || got.DealerPosition != 3 || got.SmallBlindPosition != 4 || got.BigBlindPosition != 5 {
			t.Fatalf("unexpected hand header: %+v", got)
		}
		if got.PlayerCards["6"] != "AsKd" || len(got.PlayerCards) != 6 {
			t.Fatalf("unexpected player cards: %v", got.PlayerCards)
		}
		if len(got.Actions) != 5 || got.Actions[0].Kind != domain.ActionFold || got.Actions[0].Seat != 6 {
			t.Fatalf("unexpected actions: %+v", got.Actions)
		}
		if got.ActionsShort != "f f f f f" {
			t.Fatalf("unexpected short actions %q", got.ActionsShort)
		}
		if got.BoardCards != nil {
			t.Fatalf("expected nil board, got %q", *got.BoardCards)
		}
		if got.Winnings[5] != 20 || got.Winnings[4] != -20 || got.Winnings.Total() != 0 {
			t.Fatalf("unexpected winnings: %v", got.Winnings)
		}
		if !got.CreatedAt.Equal(createdAt) {
			t.Fatalf("expected created_at %v, got %v", createdAt, got.CreatedAt)
		}
	})

	t.Run("CreateDuplicateReturnsErrHandAlreadyExists", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		record := sampleHandRecord("dup-hand", time.Now().UTC())

		if _, err := repo.CreateHand(ctx, record); err != nil {
			t.Fatalf("first CreateHand failed: %v", err)
		}
		_, err := repo.CreateHand(ctx, record)
		if !errors.Is(err, ErrHandAlreadyExists) {
			t.Fatalf("expected ErrHandAlreadyExists, got %v", err)
		}
	})

	t.Run("GetMissingHand", func(t *testing.T) {
		repo := newRepo(t)
		_, ok, err := repo.GetHand(context.Background(), "missing")
		if err != nil {
			t.Fatalf("GetHand failed: %v", err)
		}
		if ok {
			t.Fatal("expected missing hand")
		}
	})

	t.Run("HandExists", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		if _, err := repo.CreateHand(ctx, sampleHandRecord("present", time.Now().UTC())); err != nil {
			t.Fatalf("CreateHand failed: %v", err)
		}

		exists, err := repo.HandExists(ctx, "present")
		if err != nil || !exists {
			t.Fatalf("expected present hand to exist, got %v (err=%v)", exists, err)
		}
		exists, err = repo.HandExists(ctx, "absent")
		if err != nil || exists {
			t.Fatalf("expected absent hand to be missing, got %v (err=%v)", exists, err)
		}
	})

	t.Run("ListRecentHandsNewestFirstWithLimit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, handID := range []string{"old", "newest", "middle"} {
			offsets := []time.Duration{0, 2 * time.Minute, time.Minute}
			if _, err := repo.CreateHand(ctx, sampleHandRecord(handID, base.Add(offsets[i]))); err != nil {
				t.Fatalf("CreateHand %s failed: %v", handID, err)
			}
		}

		hands, err := repo.ListRecentHands(ctx, 2)
		if err != nil {
			t.Fatalf("ListRecentHands failed: %v", err)
		}
		if len(hands) != 2 {
			t.Fatalf("expected 2 hands, got %d", len(hands))
		}
		if hands[0].HandID != "newest" || hands[1].HandID != "middle" {
			t.Fatalf("expected [newest middle], got [%s %s]", hands[0].HandID, hands[1].HandID)
		}

		all, err := repo.ListRecentHands(ctx, 10)
		if err != nil {
			t.Fatalf("ListRecentHands failed: %v", err)
		}
		if len(all) != 3 || all[2].HandID != "old" {
			t.Fatalf("expected three hands ending with old, got %d", len(all))
		}
	})

	t.Run("DeleteHand", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		if _, err := repo.CreateHand(ctx, sampleHandRecord("doomed", time.Now().UTC())); err != nil {
			t.Fatalf("CreateHand failed: %v", err)
		}
		if err := repo.DeleteHand(ctx, "doomed"); err != nil {
			t.Fatalf("DeleteHand failed: %v", err)
		}
		if _, ok, _ := repo.GetHand(ctx, "doomed"); ok {
			t.Fatal("expected hand to be gone")
		}
		if err := repo.DeleteHand(ctx, "doomed"); !errors.Is(err, ErrHandNotFound) {
			t.Fatalf("expected ErrHandNotFound, got %v", err)
		}
	})

	t.Run("StoresBoardCards", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		record := sampleHandRecord("with-board", time.Now().UTC())
		board := "AhKhQh"
		record.BoardCards = &board

		if _, err := repo.CreateHand(ctx, record); err != nil {
			t.Fatalf("CreateHand failed: %v", err)
		}
		got, _, err := repo.GetHand(ctx, "with-board")
		if err != nil {
			t.Fatalf("GetHand failed: %v", err)
		}
		if got.BoardCards == nil || *got.BoardCards != board {
			t.Fatalf("expected board %q, got %v", board, got.BoardCards)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		repo := newRepo(t)
		if err := repo.Ping(context.Background()); err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
	})
}

// sampleHandRecord is a hand where everyone folds to the big blind.
func sampleHandRecord(handID string, createdAt time.Time) HandRecord {
	actions := make([]domain.ActionRecord, 0, 5)
	for _, seat := range []domain.SeatNo{6, 1, 2, 3, 4} {
		actions = append(actions, domain.ActionRecord{Street: domain.StreetPreflop, Seat: seat, Kind: domain.ActionFold})
	}
	return HandRecord{
		HandID:             handID,
		StackSize:          10_000,
		DealerPosition:     3,
		SmallBlindPosition: 4,
		BigBlindPosition:   5,
		PlayerCards: map[string]string{
			"1": "2c3d", "2": "4h5s", "3": "6c7d", "4": "8h9s", "5": "TcJd", "6": "AsKd",
		},
		Actions:      actions,
		ActionsShort: "f f f f f",
		Winnings:     domain.Settlement{1: 0, 2: 0, 3: 0, 4: -20, 5: 20, 6: 0},
		CreatedAt:    createdAt,
	}
}
