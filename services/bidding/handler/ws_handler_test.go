package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeHub struct {
	served int
	err    error
}

func (f *fakeHub) ServeWS(w http.ResponseWriter, _ *http.Request) error {
	f.served++
	if f.err != nil {
		w.WriteHeader(http.StatusBadRequest)
	}
	return f.err
}

func (f *fakeHub) Stats() map[string]any {
	return map[string]any{"connected_clients": 3}
}

func TestWSHandler(t *testing.T) {
	t.Parallel()
	hub := &fakeHub{}
	h := NewWSHandler(hub)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", h.ServeWSHandler)
	router.GET("/ws/stats", h.StatsHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, 1, hub.served)

	hub.err = errors.New("websocket: not a websocket handshake")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	require.Equal(t, 3.0, data["connected_clients"])
}
