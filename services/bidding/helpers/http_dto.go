package helpers

import (
	"time"

	model "live-auction/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string  `json:"auction_id" binding:"required"`
	BidderID  string  `json:"bidder_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

func (r PlaceBidRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AuctionID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.BidderID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Amount,
			validation.Required.Error("amount is required"),
			validation.Min(0.01).Error("amount must be at least 0.01"),
		),
	)
}

// ToModel converts the request into the service's bid request
func (r PlaceBidRequest) ToModel() model.BidRequest {
	return model.BidRequest{
		AuctionID: r.AuctionID,
		BidderID:  r.BidderID,
		Amount:    decimal.NewFromFloat(r.Amount),
	}
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Sequence  uint64          `json:"sequence"`
	CreatedAt string          `json:"created_at"`
}

func NewBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		Sequence:  b.Sequence,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// AuctionRequest is the admin payload for creating or editing an auction
type AuctionRequest struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	BasePrice   float64   `json:"base_price" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	ImageURL    string    `json:"image_url,omitempty"`
}

func (r AuctionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Length(0, 64)),
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 200),
		),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.BasePrice,
			validation.Required.Error("base price is required"),
			validation.Min(0.01).Error("base price must be positive"),
		),
		validation.Field(&r.StartTime, validation.Required),
		validation.Field(&r.EndTime,
			validation.Required,
			validation.Min(r.StartTime).Exclusive().Error("end time must be after start time"),
		),
		validation.Field(&r.ImageURL,
			validation.When(r.ImageURL != "", is.URL.Error("image url must be a valid URL")),
		),
	)
}

// ToModel converts the request into an auction
func (r AuctionRequest) ToModel() model.Auction {
	return model.Auction{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		BasePrice:   decimal.NewFromFloat(r.BasePrice),
		StartTime:   r.StartTime.UTC(),
		EndTime:     r.EndTime.UTC(),
		ImageURL:    r.ImageURL,
	}
}

// AuctionResponse is an auction with its phase at the time of the request
type AuctionResponse struct {
	model.Auction
	Phase    model.Phase    `json:"phase"`
	TimeLeft model.TimeLeft `json:"time_left"`
}

type WinnerResponse struct {
	AuctionID string       `json:"auction_id"`
	Winner    *BidResponse `json:"winner"`
	DecidedAt string       `json:"decided_at"`
}

func NewWinnerResponse(w model.Winner) WinnerResponse {
	resp := WinnerResponse{
		AuctionID: w.AuctionID,
		DecidedAt: w.DecidedAt.UTC().Format(time.RFC3339),
	}
	if w.Bid != nil {
		b := NewBidResponse(*w.Bid)
		resp.Winner = &b
	}
	return resp
}
