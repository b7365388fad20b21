package server

import (
	"net/http"
	"time"

	"live-auction/utils"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request ID back to the caller
const RequestIDHeader = "X-Request-ID"

// RequestLoggerMiddleware tags each request with an ID and logs it with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = utils.GenerateID()
	}
	c.Set("request_id", requestID)
	c.Header(RequestIDHeader, requestID)

	c.Next() // process request

	fields := map[string]any{
		"request_id": requestID,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"client_ip":  c.ClientIP(),
		"status":     c.Writer.Status(),
		"latency":    time.Since(start).String(),
	}
	// the websocket route stays open for the whole session
	if c.FullPath() == "/ws" {
		fields["upgraded"] = true
	}

	switch status := c.Writer.Status(); {
	case status >= http.StatusInternalServerError:
		utils.Error("HTTP Request", fields)
	case status >= http.StatusBadRequest:
		utils.Warn("HTTP Request", fields)
	default:
		utils.Info("HTTP Request", fields)
	}
}
