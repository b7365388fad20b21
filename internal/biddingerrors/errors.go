package biddingerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrNoWinner        = errors.New("no winner recorded for auction")
)

// business logic errors
var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrAuctionSealed    = errors.New("auction is closed to new bids")
	ErrInvalidAuction   = errors.New("invalid auction")
	ErrAuctionHasBids   = errors.New("auction already has bids")
)

// Reason codes sent to clients in rejections
const (
	ReasonAuctionNotFound  = "AUCTION_NOT_FOUND"
	ReasonAuctionNotActive = "AUCTION_NOT_ACTIVE"
	ReasonBidTooLow        = "BID_TOO_LOW"
	ReasonMalformedRequest = "MALFORMED_REQUEST"
	ReasonInternal         = "INTERNAL"
)

// BidTooLow builds the rejection for an amount under the required minimum.
// The minimum is shown with at least two decimals and never rounded.
func BidTooLow(minimum decimal.Decimal) error {
	places := int32(2)
	if exp := -minimum.Exponent(); exp > places {
		places = exp
	}
	return fmt.Errorf("%w - bid must be at least %s", ErrBidTooLow, minimum.StringFixed(places))
}

// Reason maps an error to the reason code reported to the submitting client.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAuctionNotFound):
		return ReasonAuctionNotFound
	case errors.Is(err, ErrAuctionNotActive), errors.Is(err, ErrAuctionSealed):
		return ReasonAuctionNotActive
	case errors.Is(err, ErrBidTooLow):
		return ReasonBidTooLow
	case errors.Is(err, ErrMalformedRequest), errors.Is(err, ErrInvalidAuction):
		return ReasonMalformedRequest
	default:
		return ReasonInternal
	}
}
