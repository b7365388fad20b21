package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response carrying the rejection reason code
func JSONError(c *gin.Context, status int, reason string, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"reason":  reason,
		"error":   err.Error(),
	})
}
