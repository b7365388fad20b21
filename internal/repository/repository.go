package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionDB is the external record store for auctions and bid history.
// It is read at startup and written asynchronously; it never gates a bid decision.
type AuctionDB interface {
	ListAuctions(ctx context.Context) ([]model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	SaveAuction(ctx context.Context, auction model.Auction) error
	DeleteAuction(ctx context.Context, auctionID string) error
	ListBids(ctx context.Context, auctionID string) ([]model.Bid, error)
	AppendBid(ctx context.Context, bid model.Bid) error
}

// WinnerDB stores the settled outcome of each auction. SaveWinner is create-once:
// it reports false when a winner was already recorded and leaves it untouched.
type WinnerDB interface {
	SaveWinner(ctx context.Context, winner model.Winner) (bool, error)
	GetWinner(ctx context.Context, auctionID string) (model.Winner, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB and WinnerDB
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID -> value: auction
	bids     map[string][]model.Bid   // key: auctionID -> value: list of bids
	winners  map[string]model.Winner  // key: auctionID -> value: winner record
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
		winners:  make(map[string]model.Winner),
	}
}

// ListAuctions returns all auctions ordered by start time
func (r *MemoryRepo) ListAuctions(_ context.Context) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		auctions = append(auctions, a)
	}
	sortAuctions(auctions)
	return auctions, nil
}

// GetAuction returns a single auction
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// SaveAuction creates or replaces an auction
func (r *MemoryRepo) SaveAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.ID] = auction
	return nil
}

// DeleteAuction removes an auction and its bid history
func (r *MemoryRepo) DeleteAuction(_ context.Context, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	delete(r.auctions, auctionID)
	delete(r.bids, auctionID)
	return nil
}

// ListBids returns all stored bids for an auction in append order
func (r *MemoryRepo) ListBids(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Bid{}, r.bids[auctionID]...), nil
}

// AppendBid records an accepted bid
func (r *MemoryRepo) AppendBid(_ context.Context, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return nil
}

// SaveWinner records the winner unless one already exists
func (r *MemoryRepo) SaveWinner(_ context.Context, winner model.Winner) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.winners[winner.AuctionID]; ok {
		return false, nil
	}
	r.winners[winner.AuctionID] = winner
	return true, nil
}

// GetWinner returns the recorded winner of an auction
func (r *MemoryRepo) GetWinner(_ context.Context, auctionID string) (model.Winner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.winners[auctionID]
	if !ok {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, biddingerrors.ErrNoWinner)
	}
	return w, nil
}

// AddAuction adds an auction to the repository. This method is intended for tests and seeding.
func (r *MemoryRepo) AddAuction(auction model.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.ID] = auction
}

func sortAuctions(auctions []model.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].StartTime.Equal(auctions[j].StartTime) {
			return auctions[i].ID < auctions[j].ID
		}
		return auctions[i].StartTime.Before(auctions[j].StartTime)
	})
}
