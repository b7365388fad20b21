package hub

import (
	"context"

	"live-auction/internal/events"
	model "live-auction/internal/models"
)

//go:generate mockgen -source=interfaces.go -destination=mock_hub.go -package=hub

// BidSubmitter is the bid submission path the hub relays SUBMIT_BID into
type BidSubmitter interface {
	PlaceBid(ctx context.Context, req model.BidRequest) (model.Bid, error)
}

// SnapshotSource provides the full state sent to a newly connected client
type SnapshotSource interface {
	Snapshot() events.SnapshotPayload
}
