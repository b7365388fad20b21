package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Helper to create a new Auction
func newAuction(auctionID, name string, basePrice int64, start time.Time) model.Auction {
	return model.Auction{
		ID:          auctionID,
		Name:        name,
		Description: fmt.Sprintf("%s description", name),
		BasePrice:   decimal.NewFromInt(basePrice),
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
	}
}

// Helper to create a new Bid
func newBid(bidID, auctionID, bidderID string, amount int64, createdAt time.Time) model.Bid {
	return model.Bid{
		BidID:     bidID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
		CreatedAt: createdAt,
	}
}

type store interface {
	AuctionDB
	WinnerDB
}

// every backend without external services runs the same contract
func backends(t *testing.T) map[string]func() store {
	return map[string]func() store{
		"memory": func() store { return NewMemoryRepo() },
		"file": func() store {
			r, err := OpenFileRepo(filepath.Join(t.TempDir(), "db.json"))
			require.NoError(t, err)
			return r
		},
	}
}

func TestRepo_Auctions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for name, open := range backends(t) {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			repo := open()

			require.NoError(t, repo.SaveAuction(ctx, newAuction("a2", "Second", 75, base.Add(time.Hour))))
			require.NoError(t, repo.SaveAuction(ctx, newAuction("a1", "First", 50, base)))

			auctions, err := repo.ListAuctions(ctx)
			require.NoError(t, err)
			require.Len(t, auctions, 2)
			require.Equal(t, "a1", auctions[0].ID, "ordered by start time")

			got, err := repo.GetAuction(ctx, "a2")
			require.NoError(t, err)
			require.Equal(t, "Second", got.Name)
			require.True(t, got.BasePrice.Equal(decimal.NewFromInt(75)))

			updated := got
			updated.Name = "Renamed"
			require.NoError(t, repo.SaveAuction(ctx, updated))
			got, err = repo.GetAuction(ctx, "a2")
			require.NoError(t, err)
			require.Equal(t, "Renamed", got.Name)

			_, err = repo.GetAuction(ctx, "missing")
			require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)

			require.NoError(t, repo.DeleteAuction(ctx, "a2"))
			require.ErrorIs(t, repo.DeleteAuction(ctx, "a2"), biddingerrors.ErrAuctionNotFound)
		})
	}
}

func TestRepo_Bids(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for name, open := range backends(t) {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			repo := open()
			require.NoError(t, repo.SaveAuction(ctx, newAuction("a1", "Item 1", 50, base)))

			tests := []struct {
				name      string
				bid       model.Bid
				wantError bool
			}{
				{name: "valid_bid", bid: newBid("bid1", "a1", "user1", 100, base), wantError: false},
				{name: "auction_not_found", bid: newBid("bid2", "aX", "user1", 50, base), wantError: true},
				{name: "empty_auctionID", bid: newBid("bid3", "", "user1", 50, base), wantError: true},
				{name: "second_valid_bid", bid: newBid("bid4", "a1", "user2", 150, base.Add(time.Second)), wantError: false},
			}

			for _, tc := range tests {
				err := repo.AppendBid(ctx, tc.bid)
				if tc.wantError {
					require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound, tc.name)
				} else {
					require.NoError(t, err, tc.name)
				}
			}

			bids, err := repo.ListBids(ctx, "a1")
			require.NoError(t, err)
			require.Len(t, bids, 2)
			require.Equal(t, "bid1", bids[0].BidID)
			require.Equal(t, "bid4", bids[1].BidID)

			empty, err := repo.ListBids(ctx, "nothing")
			require.NoError(t, err)
			require.Empty(t, empty)
		})
	}
}

func TestRepo_Winners(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for name, open := range backends(t) {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			repo := open()

			bid := newBid("bid1", "a1", "user1", 100, now)
			created, err := repo.SaveWinner(ctx, model.Winner{AuctionID: "a1", Bid: &bid, DecidedAt: now})
			require.NoError(t, err)
			require.True(t, created)

			// create-once: a second save never overwrites
			other := newBid("bid2", "a1", "user2", 999, now)
			created, err = repo.SaveWinner(ctx, model.Winner{AuctionID: "a1", Bid: &other, DecidedAt: now})
			require.NoError(t, err)
			require.False(t, created)

			w, err := repo.GetWinner(ctx, "a1")
			require.NoError(t, err)
			require.NotNil(t, w.Bid)
			require.Equal(t, "bid1", w.Bid.BidID)

			created, err = repo.SaveWinner(ctx, model.Winner{AuctionID: "b1", DecidedAt: now})
			require.NoError(t, err)
			require.True(t, created)
			w, err = repo.GetWinner(ctx, "b1")
			require.NoError(t, err)
			require.Nil(t, w.Bid)

			_, err = repo.GetWinner(ctx, "nope")
			require.ErrorIs(t, err, biddingerrors.ErrNoWinner)
		})
	}
}

func TestFileRepo_Reopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")
	now := time.Now().UTC().Truncate(time.Second)

	repo, err := OpenFileRepo(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAuction(ctx, newAuction("a1", "Item", 10, now)))
	require.NoError(t, repo.AppendBid(ctx, newBid("bid1", "a1", "u1", 12, now)))
	_, err = repo.SaveWinner(ctx, model.Winner{AuctionID: "a1", DecidedAt: now})
	require.NoError(t, err)

	reopened, err := OpenFileRepo(path)
	require.NoError(t, err)

	a, err := reopened.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.True(t, a.StartTime.Equal(now))
	bids, err := reopened.ListBids(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.True(t, bids[0].Amount.Equal(decimal.NewFromInt(12)))
	_, err = reopened.GetWinner(ctx, "a1")
	require.NoError(t, err)
}

// a write that cannot reach the disk leaves the records as they were
func TestFileRepo_FailedWriteKeepsState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.Mkdir(dir, 0o755))
	now := time.Now().UTC().Truncate(time.Second)

	repo, err := OpenFileRepo(filepath.Join(dir, "db.json"))
	require.NoError(t, err)
	require.NoError(t, repo.SaveAuction(ctx, newAuction("a1", "Item", 10, now)))
	require.NoError(t, repo.AppendBid(ctx, newBid("bid1", "a1", "u1", 12, now)))

	// temp files can no longer be created next to the document
	require.NoError(t, os.RemoveAll(dir))

	require.Error(t, repo.SaveAuction(ctx, newAuction("a2", "Other", 10, now)))
	renamed := newAuction("a1", "Renamed", 10, now)
	require.Error(t, repo.SaveAuction(ctx, renamed))
	require.Error(t, repo.AppendBid(ctx, newBid("bid2", "a1", "u2", 15, now)))
	require.Error(t, repo.DeleteAuction(ctx, "a1"))
	created, err := repo.SaveWinner(ctx, model.Winner{AuctionID: "a1", DecidedAt: now})
	require.Error(t, err)
	require.False(t, created)

	auctions, err := repo.ListAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, auctions, 1)
	require.Equal(t, "Item", auctions[0].Name)

	bids, err := repo.ListBids(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, "bid1", bids[0].BidID)

	_, err = repo.GetWinner(ctx, "a1")
	require.ErrorIs(t, err, biddingerrors.ErrNoWinner)
}

// concurrency test
func TestMemoryRepo_ConcurrentAppends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewMemoryRepo()
	repo.AddAuction(newAuction("a1", "Item 1", 50, time.Now()))

	var wg sync.WaitGroup
	concurrentCount := 50

	for i := 0; i < concurrentCount; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			b := newBid(fmt.Sprintf("bid-%d", i), "a1", fmt.Sprintf("user-%d", i), int64(100+i), time.Now())
			require.NoError(t, repo.AppendBid(ctx, b))
		}()
	}

	wg.Wait()

	bids, err := repo.ListBids(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, concurrentCount)
}

func TestMemoryRepo_ConcurrentSaveWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryRepo()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.SaveWinner(ctx, model.Winner{AuctionID: "a1", DecidedAt: time.Now()})
			require.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, created)
}
