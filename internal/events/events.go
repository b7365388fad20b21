// Package events defines the real-time wire envelope and its payloads.
package events

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"
	"live-auction/utils"

	"github.com/shopspring/decimal"
)

// Type names an event on the real-time channel
type Type string

// Server to client
const (
	TypeSnapshot      Type = "SNAPSHOT"
	TypeTimersUpdated Type = "TIMERS_UPDATED"
	TypeBidAccepted   Type = "BID_ACCEPTED"
	TypeBidRejected   Type = "BID_REJECTED"
	TypeAuctionEnded  Type = "AUCTION_ENDED"
)

// Client to server
const (
	TypeJoin      Type = "JOIN"
	TypeSubmitBid Type = "SUBMIT_BID"
	// TypePlaceBid is the older name of SUBMIT_BID, still accepted
	TypePlaceBid Type = "PLACE_BID"
)

// Envelope is the structure of every message on the real-time channel
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// HighestBid pairs an auction with its current-highest bid
type HighestBid struct {
	AuctionID string    `json:"auction_id"`
	Bid       model.Bid `json:"bid"`
}

// SnapshotPayload is the full state sent to a newly connected client
type SnapshotPayload struct {
	Timers      []model.AuctionTimer `json:"timers"`
	HighestBids []HighestBid         `json:"highest_bids"`
}

// TimersPayload carries the periodic countdown of every auction
type TimersPayload struct {
	Timers []model.AuctionTimer `json:"timers"`
}

// BidAcceptedPayload announces a new current-highest bid
type BidAcceptedPayload struct {
	AuctionID string    `json:"auction_id"`
	Bid       model.Bid `json:"bid"`
}

// BidRejectedPayload is sent only to the client whose bid was refused
type BidRejectedPayload struct {
	Reason    string `json:"reason"`
	Details   string `json:"details"`
	AuctionID string `json:"auction_id,omitempty"`
}

// AuctionEndedPayload announces the winner of an auction; Winner is null when nobody bid
type AuctionEndedPayload struct {
	AuctionID string     `json:"auction_id"`
	Winner    *model.Bid `json:"winner"`
}

// SubmitBidPayload is the body of an inbound SUBMIT_BID
type SubmitBidPayload struct {
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Publisher delivers envelopes to every connected client
type Publisher interface {
	Broadcast(env Envelope)
	ClientCount() int
}

// New wraps a payload into an envelope stamped with the given time
func New(t Type, payload any, at time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: failed to marshal %s payload: %w", t, err)
	}
	return Envelope{
		ID:        utils.GenerateID(),
		Type:      t,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// Snapshot builds the newcomer payload; highest bids are ordered by auction ID
func Snapshot(timers []model.AuctionTimer, highest map[string]model.Bid) SnapshotPayload {
	bids := make([]HighestBid, 0, len(highest))
	for id, b := range highest {
		bids = append(bids, HighestBid{AuctionID: id, Bid: b})
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].AuctionID < bids[j].AuctionID })
	if timers == nil {
		timers = []model.AuctionTimer{}
	}
	return SnapshotPayload{Timers: timers, HighestBids: bids}
}

// Rejection builds the unicast payload for a refused bid
func Rejection(auctionID string, err error) BidRejectedPayload {
	return BidRejectedPayload{
		Reason:    biddingerrors.Reason(err),
		Details:   err.Error(),
		AuctionID: auctionID,
	}
}

// Decode reads an inbound envelope. Unknown types and unreadable JSON are malformed.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("events: %w - %v", biddingerrors.ErrMalformedRequest, err)
	}
	switch env.Type {
	case TypeJoin, TypeSubmitBid, TypePlaceBid:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("events: %w - unknown message type %q", biddingerrors.ErrMalformedRequest, env.Type)
	}
}

// DecodeSubmitBid reads the body of a SUBMIT_BID or PLACE_BID envelope
func DecodeSubmitBid(env Envelope) (model.BidRequest, error) {
	var p SubmitBidPayload
	if len(env.Data) == 0 {
		return model.BidRequest{}, fmt.Errorf("events: %w - missing bid data", biddingerrors.ErrMalformedRequest)
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return model.BidRequest{}, fmt.Errorf("events: %w - %v", biddingerrors.ErrMalformedRequest, err)
	}
	return model.BidRequest{AuctionID: p.AuctionID, BidderID: p.BidderID, Amount: p.Amount}, nil
}
