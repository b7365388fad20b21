package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"
	"live-auction/services/bidding/helpers"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

//go:generate mockgen -source=bidding_handler.go -destination=mock_handler.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, req model.BidRequest) (model.Bid, error)
	GetBidsForAuction(auctionID string) ([]model.Bid, error)
	GetHighestBid(auctionID string) (model.Bid, error)
	GetWinner(ctx context.Context, auctionID string) (model.Winner, error)
	GetBidsByBidder(bidderID string) ([]model.Bid, error)
	ListAuctions() []model.Auction
	GetAuction(auctionID string) (model.Auction, error)
	CreateAuction(ctx context.Context, auction model.Auction) (model.Auction, error)
	UpdateAuction(ctx context.Context, auction model.Auction) (model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID string) error
}

type BiddingHandler struct {
	service BiddingServiceInterface
	clock   clockwork.Clock
}

func NewBiddingHandler(service BiddingServiceInterface, clock clockwork.Clock) *BiddingHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BiddingHandler{service: service, clock: clock}
}

func respondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message, reason := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, reason, fmt.Errorf("%s: %w", message, err), message)

	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}
	if err := req.Validate(); err != nil {
		helpers.HandleValidationError(c, "RecordBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), req.ToModel())
	if err != nil {
		respondError(c, "RecordBidHandler", err, map[string]any{
			"auction_id": req.AuctionID,
			"bidder_id":  req.BidderID,
			"reason":     biddingerrors.Reason(err),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount.String(),
	})
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(auctionID)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		respondError(c, "GetBidsByAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.NewBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetHighestBidHandler handles GET /auctions/:auction_id/highest
func (h *BiddingHandler) GetHighestBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetHighestBid(auctionID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, biddingerrors.Reason(err), err, "no highest bid found")
			utils.Info("GetHighestBidHandler: no highest bid found", map[string]any{"auction_id": auctionID})
			return
		}
		respondError(c, "GetHighestBidHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "highest bid retrieved successfully")
	helpers.LogSuccess("GetHighestBidHandler", "highest bid retrieved successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"amount":     bid.Amount.String(),
	})
}

// GetWinnerHandler handles GET /auctions/:auction_id/winner
func (h *BiddingHandler) GetWinnerHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	winner, err := h.service.GetWinner(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetWinnerHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewWinnerResponse(winner), "winner retrieved successfully")
	helpers.LogSuccess("GetWinnerHandler", "winner retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"has_winner": winner.Bid != nil,
	})
}

// GetBidsByUserHandler handles GET /users/:user_id/bids
func (h *BiddingHandler) GetBidsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	bids, err := h.service.GetBidsByBidder(userID)
	if err != nil {
		respondError(c, "GetBidsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.NewBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByUserHandler", "bids retrieved successfully", map[string]any{
		"user_id":    userID,
		"bids_count": len(resp),
	})
}
