package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"
)

// fileDocument is the on-disk layout of the JSON record store
type fileDocument struct {
	Auctions []model.Auction `json:"auctions"`
	Bids     []model.Bid     `json:"bids"`
	Winners  []model.Winner  `json:"winners"`
}

// FileRepo keeps all records in a single JSON document. Every write rewrites the
// document through a temp file and rename, so a crash never leaves a torn file.
type FileRepo struct {
	mu   sync.Mutex
	path string
	doc  fileDocument
}

// OpenFileRepo loads the document at path, creating an empty one if it does not exist
func OpenFileRepo(path string) (*FileRepo, error) {
	r := &FileRepo{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := r.write(r.doc); err != nil {
			return nil, err
		}
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("file store: read %s: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.doc); err != nil {
			return nil, fmt.Errorf("file store: parse %s: %w", path, err)
		}
	}
	return r, nil
}

// clone copies the document so a failed write leaves the current one untouched
func (d fileDocument) clone() fileDocument {
	return fileDocument{
		Auctions: append([]model.Auction{}, d.Auctions...),
		Bids:     append([]model.Bid{}, d.Bids...),
		Winners:  append([]model.Winner{}, d.Winners...),
	}
}

// commit writes next to disk and only then makes it the current document
func (r *FileRepo) commit(next fileDocument) error {
	if err := r.write(next); err != nil {
		return err
	}
	r.doc = next
	return nil
}

func (r *FileRepo) write(doc fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".db-*.json")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

func (r *FileRepo) auctionIndex(auctionID string) int {
	for i, a := range r.doc.Auctions {
		if a.ID == auctionID {
			return i
		}
	}
	return -1
}

// ListAuctions returns all auctions ordered by start time
func (r *FileRepo) ListAuctions(_ context.Context) ([]model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auctions := append([]model.Auction{}, r.doc.Auctions...)
	sortAuctions(auctions)
	return auctions, nil
}

// GetAuction returns a single auction
func (r *FileRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.auctionIndex(auctionID); i >= 0 {
		return r.doc.Auctions[i], nil
	}
	return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
}

// SaveAuction creates or replaces an auction
func (r *FileRepo) SaveAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.doc.clone()
	if i := r.auctionIndex(auction.ID); i >= 0 {
		next.Auctions[i] = auction
	} else {
		next.Auctions = append(next.Auctions, auction)
	}
	return r.commit(next)
}

// DeleteAuction removes an auction and its bids
func (r *FileRepo) DeleteAuction(_ context.Context, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.auctionIndex(auctionID)
	if i < 0 {
		return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	next := r.doc.clone()
	next.Auctions = append(next.Auctions[:i], next.Auctions[i+1:]...)

	kept := next.Bids[:0]
	for _, b := range next.Bids {
		if b.AuctionID != auctionID {
			kept = append(kept, b)
		}
	}
	next.Bids = kept
	return r.commit(next)
}

// ListBids returns all stored bids for an auction in append order
func (r *FileRepo) ListBids(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bids := []model.Bid{}
	for _, b := range r.doc.Bids {
		if b.AuctionID == auctionID {
			bids = append(bids, b)
		}
	}
	return bids, nil
}

// AppendBid records an accepted bid
func (r *FileRepo) AppendBid(_ context.Context, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.auctionIndex(bid.AuctionID) < 0 {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	next := r.doc.clone()
	next.Bids = append(next.Bids, bid)
	return r.commit(next)
}

// SaveWinner records the winner unless one already exists
func (r *FileRepo) SaveWinner(_ context.Context, winner model.Winner) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.doc.Winners {
		if w.AuctionID == winner.AuctionID {
			return false, nil
		}
	}
	next := r.doc.clone()
	next.Winners = append(next.Winners, winner)
	if err := r.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// GetWinner returns the recorded winner of an auction
func (r *FileRepo) GetWinner(_ context.Context, auctionID string) (model.Winner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.doc.Winners {
		if w.AuctionID == auctionID {
			return w, nil
		}
	}
	return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, biddingerrors.ErrNoWinner)
}
