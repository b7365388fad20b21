package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/lifecycle"
	model "live-auction/internal/models"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", biddingerrors.ErrMalformedRequest)
	utils.JSONError(c, http.StatusBadRequest, biddingerrors.ReasonMalformedRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// HandleValidationError sends a 400 carrying the per-field validation messages
func HandleValidationError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("%w - %v", biddingerrors.ErrMalformedRequest, err)
	utils.JSONError(c, http.StatusBadRequest, biddingerrors.ReasonMalformedRequest, wrappedErr, "validation failed")
	utils.Warn(handlerName+": validation error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code, message and reason code
func MapErrorToHTTP(err error) (int, string, string) {
	reason := biddingerrors.Reason(err)
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found", reason
	case errors.Is(err, biddingerrors.ErrMalformedRequest):
		return http.StatusBadRequest, "invalid bid details", reason
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details", reason
	case errors.Is(err, biddingerrors.ErrAuctionNotActive), errors.Is(err, biddingerrors.ErrAuctionSealed):
		return http.StatusConflict, "auction is not active", reason
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low", reason
	case errors.Is(err, biddingerrors.ErrAuctionHasBids):
		return http.StatusConflict, "auction already has bids", reason
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction", reason
	case errors.Is(err, biddingerrors.ErrNoWinner):
		return http.StatusNotFound, "auction has no winner yet", reason
	default:
		return http.StatusInternalServerError, "internal server error", reason
	}
}

// NewAuctionResponse attaches the phase and countdown at now
func NewAuctionResponse(a model.Auction, now time.Time) AuctionResponse {
	timer := lifecycle.Timer(a, now)
	return AuctionResponse{Auction: a, Phase: timer.Phase, TimeLeft: timer.TimeLeft}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
