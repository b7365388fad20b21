package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestJSONError_CarriesGivenReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSONError(c, http.StatusConflict, "BID_TOO_LOW", errors.New("bid amount too low"), "bid amount too low")

	require.Equal(t, http.StatusConflict, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "BID_TOO_LOW", body["reason"])
	require.Equal(t, "bid amount too low", body["error"])
	require.Equal(t, 409.0, body["status"])
}
