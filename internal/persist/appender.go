// Package persist writes accepted bids to the record store off the bid path.
package persist

import (
	"context"
	"sync"
	"time"

	model "live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024
	defaultTimeout   = 5 * time.Second
)

// Options tunes the appender worker pool
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Appender is a bounded queue drained by a fixed pool of workers calling AppendBid.
// Writes are fire-and-forget: failures are logged and never reported to the caller.
type Appender struct {
	db      repository.AuctionDB
	timeout time.Duration
	workers int

	mu     sync.RWMutex
	closed bool
	queue  chan model.Bid
	wg     sync.WaitGroup
}

// NewAppender starts the worker pool. Zero options fall back to defaults.
func NewAppender(db repository.AuctionDB, opts Options) *Appender {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	a := &Appender{
		db:      db,
		timeout: opts.Timeout,
		workers: opts.Workers,
		queue:   make(chan model.Bid, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		a.wg.Add(1)
		go a.worker(i)
	}
	return a
}

// Enqueue hands a bid to the pool without blocking. It returns false when the
// queue is full or the appender is closed; the bid is then dropped and logged.
func (a *Appender) Enqueue(bid model.Bid) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		utils.Warn("persist: appender closed, dropping bid", map[string]any{
			"auction_id": bid.AuctionID,
			"bid_id":     bid.BidID,
		})
		return false
	}

	select {
	case a.queue <- bid:
		return true
	default:
		utils.Error("persist: queue full, dropping bid", map[string]any{
			"auction_id": bid.AuctionID,
			"bid_id":     bid.BidID,
			"queue_size": cap(a.queue),
		})
		return false
	}
}

// Pending returns the number of queued, not yet written bids
func (a *Appender) Pending() int {
	return len(a.queue)
}

// Close stops accepting bids and waits until every queued bid has been written
func (a *Appender) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	utils.Info("persist: appender drained", map[string]any{"workers": a.workers})
}

func (a *Appender) worker(workerID int) {
	defer a.wg.Done()

	for bid := range a.queue {
		a.write(workerID, bid)
	}
}

func (a *Appender) write(workerID int, bid model.Bid) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.db.AppendBid(ctx, bid); err != nil {
		utils.Error("persist: failed to append bid", map[string]any{
			"auction_id": bid.AuctionID,
			"bid_id":     bid.BidID,
			"worker_id":  workerID,
			"error":      err.Error(),
		})
		return
	}
	utils.Debug("persist: bid appended", map[string]any{
		"auction_id": bid.AuctionID,
		"bid_id":     bid.BidID,
		"worker_id":  workerID,
	})
}
