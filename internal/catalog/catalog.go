// Package catalog keeps the known auctions in memory so the bid path and the
// scheduler never wait on the record store.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"
	"live-auction/internal/repository"
)

// Catalog is a concurrency-safe set of auctions keyed by ID
type Catalog struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{auctions: make(map[string]model.Auction)}
}

// Load replaces the catalog contents with every auction in the store
func (c *Catalog) Load(ctx context.Context, db repository.AuctionDB) (int, error) {
	auctions, err := db.ListAuctions(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog: failed to list auctions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.auctions = make(map[string]model.Auction, len(auctions))
	for _, a := range auctions {
		c.auctions[a.ID] = a
	}
	return len(auctions), nil
}

// Get returns the auction with the given ID
func (c *Catalog) Get(auctionID string) (model.Auction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("catalog: %w - %s", biddingerrors.ErrAuctionNotFound, auctionID)
	}
	return a, nil
}

// List returns all auctions ordered by start time, then ID
func (c *Catalog) List() []model.Auction {
	c.mu.RLock()
	out := make([]model.Auction, 0, len(c.auctions))
	for _, a := range c.auctions {
		out = append(out, a)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Put inserts or replaces an auction
func (c *Catalog) Put(auction model.Auction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auctions[auction.ID] = auction
}

// Remove deletes an auction; removing an unknown ID is a no-op
func (c *Catalog) Remove(auctionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.auctions, auctionID)
}

// Len returns the number of known auctions
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.auctions)
}
