package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Phase is the derived lifecycle state of an auction
type Phase string

const (
	PhaseFuture  Phase = "FUTURE"
	PhasePresent Phase = "PRESENT"
	PhasePast    Phase = "PAST"
)

// Auction represents an item put up for bidding during a fixed window
type Auction struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// Bid represents a bidder's accepted offer on an auction
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	// Sequence is the arrival order assigned by the authority, per auction.
	Sequence uint64 `json:"sequence"`
}

// BidRequest is a bid submission before the authority accepts or rejects it
type BidRequest struct {
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Winner is the settled outcome of an ended auction. Bid is nil when nobody bid.
type Winner struct {
	AuctionID string    `json:"auction_id"`
	Bid       *Bid      `json:"bid"`
	DecidedAt time.Time `json:"decided_at"`
}

// TimeLeft is the remaining time until an auction ends
type TimeLeft struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// AuctionTimer pairs an auction with its current phase and countdown
type AuctionTimer struct {
	AuctionID string   `json:"auction_id"`
	Phase     Phase    `json:"phase"`
	TimeLeft  TimeLeft `json:"time_left"`
}
