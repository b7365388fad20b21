package perftests

import (
	"context"
	"fmt"
	"testing"
	"time"

	bidding "live-auction/internal/biddingService"
	"live-auction/internal/catalog"
	"live-auction/internal/ledger"
	model "live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/internal/validator"
	"live-auction/utils"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// newBenchService builds a service over numAuctions running auctions named auction_0..n-1.
// Persistence is left out so the numbers measure the acceptance path only.
func newBenchService(tb testing.TB, numAuctions int, basePrice int64) *bidding.BiddingService {
	tb.Helper()
	utils.SetLevel("error")

	repo := repository.NewMemoryRepo()
	clock := clockwork.NewRealClock()
	svc := bidding.NewBiddingService(bidding.Deps{
		Repo:      repo,
		Winners:   repo,
		Catalog:   catalog.New(),
		Ledger:    ledger.New(),
		Validator: validator.New(decimal.RequireFromString("0.01")),
		Clock:     clock,
	})

	now := clock.Now()
	for i := 0; i < numAuctions; i++ {
		_, err := svc.CreateAuction(context.Background(), model.Auction{
			ID:          fmt.Sprintf("auction_%d", i),
			Name:        fmt.Sprintf("Benchmark auction %d", i),
			Description: "benchmark auction",
			BasePrice:   decimal.NewFromInt(basePrice),
			StartTime:   now.Add(-time.Hour),
			EndTime:     now.Add(24 * time.Hour),
		})
		if err != nil {
			tb.Fatalf("failed to create auction: %v", err)
		}
	}
	return svc
}

func bidRequest(auctionID, bidderID string, amount int64) model.BidRequest {
	return model.BidRequest{AuctionID: auctionID, BidderID: bidderID, Amount: decimal.NewFromInt(amount)}
}
