// Package ledger owns the per-auction bid history and current-highest bid.
//
// Each auction has its own entry guarded by its own mutex, so mutations for one
// auction are linearized without serializing unrelated auctions behind a global lock.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"
)

// AdmitFunc decides, under the auction's lock, whether a bid may be recorded
// given the highest bid at that instant (nil when there is none).
type AdmitFunc func(highest *model.Bid) error

// Listener observes every change of current-highest. It runs while the auction's
// lock is held, so it must not block or call back into the ledger.
type Listener func(bid model.Bid)

// Outcome reports whether a bid became the new highest, and the highest bid afterwards.
type Outcome struct {
	Accepted bool
	Highest  *model.Bid
}

type entry struct {
	mu      sync.Mutex
	bids    []model.Bid
	highest int
	sealed  bool
	seq     uint64
}

func (e *entry) top() *model.Bid {
	if e.highest < 0 {
		return nil
	}
	b := e.bids[e.highest]
	return &b
}

// Ledger is a concurrency-safe, per-auction keyed bid store
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*entry

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{entries: make(map[string]*entry)}
}

// OnChange registers a listener for highest-bid changes
func (l *Ledger) OnChange(fn Listener) {
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Ledger) notify(bid model.Bid) {
	l.listenersMu.RLock()
	defer l.listenersMu.RUnlock()
	for _, fn := range l.listeners {
		fn(bid)
	}
}

// lookup returns the entry for an auction, creating it when create is set
func (l *Ledger) lookup(auctionID string, create bool) *entry {
	l.mu.RLock()
	e, ok := l.entries[auctionID]
	l.mu.RUnlock()
	if ok || !create {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[auctionID]; ok {
		return e
	}
	e = &entry{highest: -1}
	l.entries[auctionID] = e
	return e
}

// RecordIfHighest appends the bid and makes it current-highest only if its amount
// is strictly greater than the existing highest (or no bid exists yet).
func (l *Ledger) RecordIfHighest(auctionID string, bid model.Bid) Outcome {
	out, err := l.RecordIfAdmitted(auctionID, bid, nil)
	if err != nil {
		return Outcome{Highest: out.Highest}
	}
	return out
}

// RecordIfAdmitted runs admit against the highest bid and, when it passes, records
// the bid if it is strictly greater. The whole sequence happens under the auction's lock.
func (l *Ledger) RecordIfAdmitted(auctionID string, bid model.Bid, admit AdmitFunc) (Outcome, error) {
	e := l.lookup(auctionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.top()
	if e.sealed {
		return Outcome{Highest: current}, fmt.Errorf("ledger: %w", biddingerrors.ErrAuctionSealed)
	}
	if admit != nil {
		if err := admit(current); err != nil {
			return Outcome{Highest: current}, err
		}
	}
	if current != nil && !bid.Amount.GreaterThan(current.Amount) {
		return Outcome{Highest: current}, nil
	}

	e.seq++
	bid.AuctionID = auctionID
	bid.Sequence = e.seq
	e.bids = append(e.bids, bid)
	e.highest = len(e.bids) - 1

	l.notify(bid)
	return Outcome{Accepted: true, Highest: &bid}, nil
}

// CurrentHighest returns the highest accepted bid for an auction
func (l *Ledger) CurrentHighest(auctionID string) (model.Bid, bool) {
	e := l.lookup(auctionID, false)
	if e == nil {
		return model.Bid{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if top := e.top(); top != nil {
		return *top, true
	}
	return model.Bid{}, false
}

// History returns the accepted bids of an auction, oldest first
func (l *Ledger) History(auctionID string) []model.Bid {
	e := l.lookup(auctionID, false)
	if e == nil {
		return []model.Bid{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Bid{}, e.bids...)
}

// HasBids reports whether any bid was ever accepted for the auction
func (l *Ledger) HasBids(auctionID string) bool {
	e := l.lookup(auctionID, false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.bids) > 0
}

// HighestBids returns the current-highest bid of every auction that has one
func (l *Ledger) HighestBids() map[string]model.Bid {
	l.mu.RLock()
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	out := make(map[string]model.Bid, len(ids))
	for _, id := range ids {
		if bid, ok := l.CurrentHighest(id); ok {
			out[id] = bid
		}
	}
	return out
}

// BidsByBidder returns every accepted bid placed by a bidder, newest first
func (l *Ledger) BidsByBidder(bidderID string) []model.Bid {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	bids := []model.Bid{}
	for _, e := range entries {
		e.mu.Lock()
		for _, b := range e.bids {
			if b.BidderID == bidderID {
				bids = append(bids, b)
			}
		}
		e.mu.Unlock()
	}

	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].Sequence > bids[j].Sequence
		}
		return bids[i].CreatedAt.After(bids[j].CreatedAt)
	})
	return bids
}

// Restore replaces an auction's history with previously persisted bids (warm start).
// Bids are ordered by creation time; the highest is the maximum amount, earliest on ties.
func (l *Ledger) Restore(auctionID string, bids []model.Bid) {
	ordered := append([]model.Bid{}, bids...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	e := l.lookup(auctionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bids = e.bids[:0]
	e.highest = -1
	e.seq = 0
	for _, b := range ordered {
		e.seq++
		b.AuctionID = auctionID
		b.Sequence = e.seq
		e.bids = append(e.bids, b)
		if e.highest < 0 || b.Amount.GreaterThan(e.bids[e.highest].Amount) {
			e.highest = len(e.bids) - 1
		}
	}
}

// Seal closes an auction to further bids and returns its highest bid at that instant.
// The second result is false when the auction was already sealed.
func (l *Ledger) Seal(auctionID string) (*model.Bid, bool) {
	e := l.lookup(auctionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	first := !e.sealed
	e.sealed = true
	return e.top(), first
}

// SealIfEmpty closes an auction to bids only if none was accepted yet. The check
// and the seal happen under the auction's lock, so no bid can slip in between.
func (l *Ledger) SealIfEmpty(auctionID string) bool {
	e := l.lookup(auctionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.bids) > 0 {
		return false
	}
	e.sealed = true
	return true
}

// Unseal reopens an auction closed by SealIfEmpty
func (l *Ledger) Unseal(auctionID string) {
	e := l.lookup(auctionID, false)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sealed = false
}

// Forget drops an auction's entry entirely
func (l *Ledger) Forget(auctionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, auctionID)
}
