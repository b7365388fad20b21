package server

import (
	"net/http"

	handler "live-auction/services/bidding/handler"
	"live-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface, hub handler.ConnectionHub, clock clockwork.Clock) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(biddingService, clock)
	wsHandler := handler.NewWSHandler(hub)

	router.GET("/health", func(c *gin.Context) {
		utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	})

	ws := router.Group("/ws")
	{
		ws.GET("", wsHandler.ServeWSHandler)
		ws.GET("/stats", wsHandler.StatsHandler)
	}

	bids := router.Group("/bids")
	{
		bids.POST("", biddingHandler.RecordBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", biddingHandler.ListAuctionsHandler)
		auctions.POST("", biddingHandler.CreateAuctionHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.PUT("/:auction_id", biddingHandler.UpdateAuctionHandler)
		auctions.DELETE("/:auction_id", biddingHandler.DeleteAuctionHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsByAuctionHandler)
		auctions.GET("/:auction_id/highest", biddingHandler.GetHighestBidHandler)
		auctions.GET("/:auction_id/winner", biddingHandler.GetWinnerHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/bids", biddingHandler.GetBidsByUserHandler)
	}

	return router
}
