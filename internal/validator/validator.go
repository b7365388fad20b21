// Package validator decides whether a submitted bid may enter an auction's ledger.
package validator

import (
	"fmt"
	"time"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/ledger"
	"live-auction/internal/lifecycle"
	model "live-auction/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultIncrement is the smallest step over the current highest bid
var DefaultIncrement = decimal.RequireFromString("0.01")

// LedgerView is the read side of the ledger the validator needs
type LedgerView interface {
	CurrentHighest(auctionID string) (model.Bid, bool)
}

// Validator applies the acceptance rules in order: auction exists, auction is
// active, amount reaches the minimum.
type Validator struct {
	increment decimal.Decimal
}

// New creates a validator; a non-positive increment falls back to DefaultIncrement
func New(increment decimal.Decimal) *Validator {
	if !increment.IsPositive() {
		increment = DefaultIncrement
	}
	return &Validator{increment: increment}
}

// Increment returns the configured minimum step
func (v *Validator) Increment() decimal.Decimal {
	return v.increment
}

// MinimumBid is highest + increment when a highest bid exists, else the base price
func (v *Validator) MinimumBid(auction model.Auction, highest *model.Bid) decimal.Decimal {
	if highest == nil {
		return auction.BasePrice
	}
	return highest.Amount.Add(v.increment)
}

// Validate checks a bid against the auction and the ledger's highest at this instant.
// A nil auction means the auction does not exist.
func (v *Validator) Validate(bid model.Bid, auction *model.Auction, view LedgerView, now time.Time) error {
	if auction == nil {
		return fmt.Errorf("validator: %w - %s", biddingerrors.ErrAuctionNotFound, bid.AuctionID)
	}

	var highest *model.Bid
	if h, ok := view.CurrentHighest(auction.ID); ok {
		highest = &h
	}
	return v.check(bid.Amount, *auction, highest, now)
}

// Admit returns the admission rule to run inside the ledger's lock, so the
// minimum is computed against the highest bid at the moment of recording.
func (v *Validator) Admit(auction model.Auction, amount decimal.Decimal, now time.Time) ledger.AdmitFunc {
	return func(highest *model.Bid) error {
		return v.check(amount, auction, highest, now)
	}
}

func (v *Validator) check(amount decimal.Decimal, auction model.Auction, highest *model.Bid, now time.Time) error {
	if phase := lifecycle.PhaseOf(auction, now); phase != model.PhasePresent {
		return fmt.Errorf("validator: %w - auction %s is %s", biddingerrors.ErrAuctionNotActive, auction.ID, phase)
	}

	if minimum := v.MinimumBid(auction, highest); amount.LessThan(minimum) {
		return fmt.Errorf("validator: %w", biddingerrors.BidTooLow(minimum))
	}
	return nil
}
