// Package scheduler advances every auction through its lifecycle on a fixed tick
// and announces each winner exactly once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"live-auction/internal/events"
	"live-auction/internal/ledger"
	"live-auction/internal/lifecycle"
	model "live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"

	"github.com/jonboulle/clockwork"
)

// State is the scheduler's view of one auction
type State string

const (
	StateUnknown    State = ""
	StateNotStarted State = "NOT_STARTED"
	StateRunning    State = "RUNNING"
	StateEnded      State = "ENDED"
)

const (
	defaultInterval      = time.Second
	defaultSettleTimeout = 5 * time.Second
)

// AuctionSource lists the auctions the scheduler tracks
type AuctionSource interface {
	List() []model.Auction
}

// Deps groups the scheduler collaborators
type Deps struct {
	Auctions  AuctionSource
	Ledger    *ledger.Ledger
	Winners   repository.WinnerDB
	Publisher events.Publisher
	Clock     clockwork.Clock
	Interval  time.Duration
	// SettleTimeout bounds each winner write
	SettleTimeout time.Duration
}

// Scheduler runs the periodic lifecycle evaluation
type Scheduler struct {
	auctions      AuctionSource
	ledger        *ledger.Ledger
	winners       repository.WinnerDB
	pub           events.Publisher
	clock         clockwork.Clock
	interval      time.Duration
	settleTimeout time.Duration

	mu     sync.Mutex
	states map[string]State
}

// New creates a scheduler; zero durations fall back to defaults
func New(d Deps) *Scheduler {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Interval <= 0 {
		d.Interval = defaultInterval
	}
	if d.SettleTimeout <= 0 {
		d.SettleTimeout = defaultSettleTimeout
	}
	return &Scheduler{
		auctions:      d.Auctions,
		ledger:        d.Ledger,
		winners:       d.Winners,
		pub:           d.Publisher,
		clock:         d.Clock,
		interval:      d.Interval,
		settleTimeout: d.SettleTimeout,
		states:        make(map[string]State),
	}
}

// Run ticks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	utils.Info("scheduler: started", map[string]any{"interval": s.interval.String()})
	for {
		select {
		case <-ctx.Done():
			utils.Info("scheduler: stopped", nil)
			return
		case <-ticker.Chan():
			if err := s.Tick(ctx); err != nil {
				utils.Error("scheduler: tick failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// Tick evaluates every auction once. A panic is recovered and returned as an
// error so the next tick still runs.
func (s *Scheduler) Tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: recovered from panic: %v", r)
		}
	}()

	now := s.clock.Now()
	auctions := s.auctions.List()

	var errs []error
	seen := make(map[string]struct{}, len(auctions))
	for _, a := range auctions {
		seen[a.ID] = struct{}{}
		if err := s.advance(ctx, a, now); err != nil {
			errs = append(errs, err)
		}
	}
	s.prune(seen)

	// transitions above run whether or not anyone is watching
	if s.pub.ClientCount() > 0 {
		s.publish(events.TypeTimersUpdated, events.TimersPayload{Timers: lifecycle.Timers(auctions, now)}, now)
	}
	return errors.Join(errs...)
}

// State returns the scheduler's current state for an auction
func (s *Scheduler) State(auctionID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[auctionID]
}

func (s *Scheduler) setState(auctionID string, state State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.states[auctionID]
	s.states[auctionID] = state
	return prev
}

func (s *Scheduler) prune(seen map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.states {
		if _, ok := seen[id]; !ok {
			delete(s.states, id)
		}
	}
}

func (s *Scheduler) advance(ctx context.Context, a model.Auction, now time.Time) error {
	if s.State(a.ID) == StateEnded {
		return nil
	}

	switch lifecycle.PhaseOf(a, now) {
	case model.PhaseFuture:
		s.setState(a.ID, StateNotStarted)
	case model.PhasePresent:
		if prev := s.setState(a.ID, StateRunning); prev != StateRunning {
			utils.Info("scheduler: auction running", map[string]any{"auction_id": a.ID})
		}
	case model.PhasePast:
		if err := s.settle(ctx, a, now); err != nil {
			// state stays put so the next tick retries
			return err
		}
		s.setState(a.ID, StateEnded)
	}
	return nil
}

// settle closes the ledger entry, persists the winner record and only then
// announces it. An existing record means it was already announced.
func (s *Scheduler) settle(ctx context.Context, a model.Auction, now time.Time) error {
	winner, _ := s.ledger.Seal(a.ID)

	wctx, cancel := context.WithTimeout(ctx, s.settleTimeout)
	defer cancel()

	created, err := s.winners.SaveWinner(wctx, model.Winner{AuctionID: a.ID, Bid: winner, DecidedAt: now.UTC()})
	if err != nil {
		return fmt.Errorf("scheduler: failed to record winner for auction %s: %w", a.ID, err)
	}
	if !created {
		utils.Info("scheduler: winner already recorded, not announcing again", map[string]any{"auction_id": a.ID})
		return nil
	}

	s.publish(events.TypeAuctionEnded, events.AuctionEndedPayload{AuctionID: a.ID, Winner: winner}, now)

	fields := map[string]any{"auction_id": a.ID}
	if winner != nil {
		fields["bid_id"] = winner.BidID
		fields["bidder_id"] = winner.BidderID
		fields["amount"] = winner.Amount.String()
	}
	utils.Info("scheduler: auction ended", fields)
	return nil
}

func (s *Scheduler) publish(t events.Type, payload any, now time.Time) {
	env, err := events.New(t, payload, now)
	if err != nil {
		utils.Error("scheduler: failed to build event", map[string]any{"type": string(t), "error": err.Error()})
		return
	}
	s.pub.Broadcast(env)
}
