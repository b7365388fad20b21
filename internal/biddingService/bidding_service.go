package bidding

import (
	"context"
	"fmt"
	"strings"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/catalog"
	"live-auction/internal/events"
	"live-auction/internal/ledger"
	"live-auction/internal/lifecycle"
	model "live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/internal/validator"
	"live-auction/utils"

	"github.com/jonboulle/clockwork"
)

// BidAppender persists accepted bids without blocking the caller
type BidAppender interface {
	Enqueue(bid model.Bid) bool
}

// Deps groups the collaborators of the bidding service
type Deps struct {
	Repo      repository.AuctionDB
	Winners   repository.WinnerDB
	Catalog   *catalog.Catalog
	Ledger    *ledger.Ledger
	Validator *validator.Validator
	Appender  BidAppender
	Clock     clockwork.Clock
}

// BiddingService is the bid submission path plus the read and admin operations
// exposed over HTTP.
type BiddingService struct {
	repo      repository.AuctionDB
	winners   repository.WinnerDB
	catalog   *catalog.Catalog
	ledger    *ledger.Ledger
	validator *validator.Validator
	appender  BidAppender
	clock     clockwork.Clock
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(d Deps) *BiddingService {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Validator == nil {
		d.Validator = validator.New(validator.DefaultIncrement)
	}
	return &BiddingService{
		repo:      d.Repo,
		winners:   d.Winners,
		catalog:   d.Catalog,
		ledger:    d.Ledger,
		validator: d.Validator,
		appender:  d.Appender,
		clock:     d.Clock,
	}
}

// PublishTo broadcasts BID_ACCEPTED for every change of current-highest.
// Envelopes are built in acceptance order because the ledger calls listeners under its lock.
func (s *BiddingService) PublishTo(pub events.Publisher) {
	s.ledger.OnChange(func(bid model.Bid) {
		env, err := events.New(events.TypeBidAccepted, events.BidAcceptedPayload{AuctionID: bid.AuctionID, Bid: bid}, s.clock.Now())
		if err != nil {
			utils.Error("service: failed to build bid accepted event", map[string]any{"auction_id": bid.AuctionID, "error": err.Error()})
			return
		}
		pub.Broadcast(env)
	})
}

// PlaceBid validates a submission and, when it passes, records it as the new
// current-highest. Persistence is queued after the decision and never awaited.
func (s *BiddingService) PlaceBid(ctx context.Context, req model.BidRequest) (model.Bid, error) {
	if err := validateRequest(req); err != nil {
		return model.Bid{}, err
	}

	auction, err := s.catalog.Get(req.AuctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: %w", err)
	}

	now := s.clock.Now()
	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: req.AuctionID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
		CreatedAt: now.UTC(),
	}

	// cheap rejection before taking the auction's lock
	if err := s.validator.Validate(bid, &auction, s.ledger, now); err != nil {
		return model.Bid{}, s.rejected(req, err)
	}

	out, err := s.ledger.RecordIfAdmitted(auction.ID, bid, s.validator.Admit(auction, bid.Amount, now))
	if err != nil {
		return model.Bid{}, s.rejected(req, err)
	}
	if !out.Accepted {
		return model.Bid{}, s.rejected(req, biddingerrors.BidTooLow(s.validator.MinimumBid(auction, out.Highest)))
	}

	accepted := *out.Highest
	if s.appender != nil {
		s.appender.Enqueue(accepted)
	}

	utils.Info("service: bid accepted", map[string]any{
		"auction_id": accepted.AuctionID,
		"bid_id":     accepted.BidID,
		"bidder_id":  accepted.BidderID,
		"amount":     accepted.Amount.String(),
		"sequence":   accepted.Sequence,
	})
	return accepted, nil
}

func (s *BiddingService) rejected(req model.BidRequest, err error) error {
	utils.Info("service: bid rejected", map[string]any{
		"auction_id": req.AuctionID,
		"bidder_id":  req.BidderID,
		"amount":     req.Amount.String(),
		"reason":     biddingerrors.Reason(err),
	})
	return fmt.Errorf("service: %w", err)
}

// validateRequest catches missing or invalid fields before any rule runs
func validateRequest(req model.BidRequest) error {
	if strings.TrimSpace(req.AuctionID) == "" || strings.TrimSpace(req.BidderID) == "" {
		return fmt.Errorf("service: %w - missing auction_id or bidder_id", biddingerrors.ErrMalformedRequest)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrMalformedRequest)
	}
	return nil
}

// GetBidsForAuction returns the accepted bids of an auction, oldest first
func (s *BiddingService) GetBidsForAuction(auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrMalformedRequest)
	}
	if _, err := s.catalog.Get(auctionID); err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return s.ledger.History(auctionID), nil
}

// GetHighestBid returns the current-highest bid of an auction
func (s *BiddingService) GetHighestBid(auctionID string) (model.Bid, error) {
	if auctionID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrMalformedRequest)
	}
	if _, err := s.catalog.Get(auctionID); err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get highest bid for auction %s: %w", auctionID, err)
	}

	bid, ok := s.ledger.CurrentHighest(auctionID)
	if !ok {
		return model.Bid{}, fmt.Errorf("service: %w - %s", biddingerrors.ErrNoBids, auctionID)
	}
	return bid, nil
}

// GetWinner returns the settled winner record of an ended auction
func (s *BiddingService) GetWinner(ctx context.Context, auctionID string) (model.Winner, error) {
	if auctionID == "" {
		return model.Winner{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrMalformedRequest)
	}
	w, err := s.winners.GetWinner(ctx, auctionID)
	if err != nil {
		return model.Winner{}, fmt.Errorf("service: failed to get winner for auction %s: %w", auctionID, err)
	}
	return w, nil
}

// GetBidsByBidder returns every accepted bid of a bidder, newest first
func (s *BiddingService) GetBidsByBidder(bidderID string) ([]model.Bid, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty bidder ID", biddingerrors.ErrMalformedRequest)
	}
	return s.ledger.BidsByBidder(bidderID), nil
}

// Snapshot returns the full state a newly connected client receives
func (s *BiddingService) Snapshot() events.SnapshotPayload {
	return events.Snapshot(lifecycle.Timers(s.catalog.List(), s.clock.Now()), s.ledger.HighestBids())
}

// ListAuctions returns every known auction
func (s *BiddingService) ListAuctions() []model.Auction {
	return s.catalog.List()
}

// GetAuction returns one auction
func (s *BiddingService) GetAuction(auctionID string) (model.Auction, error) {
	a, err := s.catalog.Get(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: %w", err)
	}
	return a, nil
}

// CreateAuction stores a new auction and makes it visible to bidders and the scheduler
func (s *BiddingService) CreateAuction(ctx context.Context, auction model.Auction) (model.Auction, error) {
	if auction.ID == "" {
		auction.ID = utils.GenerateID()
	}
	if _, err := s.catalog.Get(auction.ID); err == nil {
		return model.Auction{}, fmt.Errorf("service: %w - auction %s already exists", biddingerrors.ErrInvalidAuction, auction.ID)
	}
	if err := validateAuction(auction); err != nil {
		return model.Auction{}, err
	}

	if err := s.repo.SaveAuction(ctx, auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to save auction %s: %w", auction.ID, err)
	}
	s.ledger.Forget(auction.ID)
	s.catalog.Put(auction)

	utils.Info("service: auction created", map[string]any{"auction_id": auction.ID, "name": auction.Name})
	return auction, nil
}

// UpdateAuction replaces an auction's details. Already accepted bids stay valid;
// an auction that has ended can no longer be edited.
func (s *BiddingService) UpdateAuction(ctx context.Context, auction model.Auction) (model.Auction, error) {
	current, err := s.catalog.Get(auction.ID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: %w", err)
	}
	if phase := lifecycle.PhaseOf(current, s.clock.Now()); phase == model.PhasePast {
		return model.Auction{}, fmt.Errorf("service: %w - auction %s has ended", biddingerrors.ErrAuctionNotActive, auction.ID)
	}
	if err := validateAuction(auction); err != nil {
		return model.Auction{}, err
	}

	if err := s.repo.SaveAuction(ctx, auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to save auction %s: %w", auction.ID, err)
	}
	s.catalog.Put(auction)

	utils.Info("service: auction updated", map[string]any{"auction_id": auction.ID})
	return auction, nil
}

// DeleteAuction removes an auction that never received a bid
func (s *BiddingService) DeleteAuction(ctx context.Context, auctionID string) error {
	if _, err := s.catalog.Get(auctionID); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	// sealed first: a bid racing the delete is refused instead of being dropped later
	if !s.ledger.SealIfEmpty(auctionID) {
		return fmt.Errorf("service: %w - %s", biddingerrors.ErrAuctionHasBids, auctionID)
	}

	if err := s.repo.DeleteAuction(ctx, auctionID); err != nil {
		s.ledger.Unseal(auctionID)
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}
	// the sealed empty entry stays until the ID is reused by CreateAuction
	s.catalog.Remove(auctionID)

	utils.Info("service: auction deleted", map[string]any{"auction_id": auctionID})
	return nil
}

func validateAuction(a model.Auction) error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("service: %w - name is required", biddingerrors.ErrInvalidAuction)
	case !a.BasePrice.IsPositive():
		return fmt.Errorf("service: %w - base price must be positive", biddingerrors.ErrInvalidAuction)
	case !a.EndTime.After(a.StartTime):
		return fmt.Errorf("service: %w - end time must be after start time", biddingerrors.ErrInvalidAuction)
	}
	return nil
}

// WarmStart loads the auction catalog and rebuilds each auction's ledger from
// the stored bid history.
func (s *BiddingService) WarmStart(ctx context.Context) error {
	n, err := s.catalog.Load(ctx, s.repo)
	if err != nil {
		return fmt.Errorf("service: warm start failed: %w", err)
	}

	restored := 0
	for _, a := range s.catalog.List() {
		bids, err := s.repo.ListBids(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("service: failed to load bids for auction %s: %w", a.ID, err)
		}
		if len(bids) == 0 {
			continue
		}
		s.ledger.Restore(a.ID, bids)
		restored += len(bids)
	}

	utils.Info("service: warm start complete", map[string]any{"auctions": n, "bids": restored})
	return nil
}
