package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	bidding "live-auction/internal/biddingService"
	"live-auction/internal/catalog"
	"live-auction/internal/events"
	"live-auction/internal/hub"
	"live-auction/internal/ledger"
	model "live-auction/internal/models"
	"live-auction/internal/persist"
	"live-auction/internal/repository"
	"live-auction/internal/scheduler"
	"live-auction/internal/server"
	"live-auction/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stack is the whole server wired the way main does it, on a fake clock
type stack struct {
	repo     *repository.MemoryRepo
	clock    *clockwork.FakeClock
	service  *bidding.BiddingService
	hub      *hub.Hub
	sched    *scheduler.Scheduler
	appender *persist.Appender
	router   *gin.Engine
	server   *httptest.Server
}

func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &stack{
		repo:  repository.NewMemoryRepo(),
		clock: clockwork.NewFakeClockAt(testStart),
	}
	cat := catalog.New()
	led := ledger.New()
	s.appender = persist.NewAppender(s.repo, persist.Options{Workers: 2, QueueSize: 64})

	s.service = bidding.NewBiddingService(bidding.Deps{
		Repo:      s.repo,
		Winners:   s.repo,
		Catalog:   cat,
		Ledger:    led,
		Validator: validator.New(decimal.RequireFromString("0.01")),
		Appender:  s.appender,
		Clock:     s.clock,
	})
	s.hub = hub.New(s.service, s.service, hub.DefaultConfig())
	s.service.PublishTo(s.hub)

	s.sched = scheduler.New(scheduler.Deps{
		Auctions:  cat,
		Ledger:    led,
		Winners:   s.repo,
		Publisher: s.hub,
		Clock:     s.clock,
	})

	s.router = server.SetupRouter(s.service, s.hub, s.clock)
	s.server = httptest.NewServer(s.router)

	t.Cleanup(func() {
		s.hub.Close()
		s.server.Close()
		s.appender.Close()
	})
	return s
}

// seedAuction creates an auction relative to the fake clock's current time
func (s *stack) seedAuction(t *testing.T, id string, basePrice int64, start, end time.Duration) model.Auction {
	t.Helper()
	now := s.clock.Now()
	a, err := s.service.CreateAuction(context.Background(), model.Auction{
		ID:        id,
		Name:      "auction " + id,
		BasePrice: decimal.NewFromInt(basePrice),
		StartTime: now.Add(start),
		EndTime:   now.Add(end),
	})
	require.NoError(t, err)
	return a
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

func dialWS(t *testing.T, s *stack) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) events.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env events.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

// readUntil skips other events until one of type want arrives
func readUntil(t *testing.T, conn *websocket.Conn, want events.Type) events.Envelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		env := readEnvelope(t, conn)
		if env.Type == want {
			return env
		}
	}
	t.Fatalf("no %s event received", want)
	return events.Envelope{}
}

func waitForClients(t *testing.T, s *stack, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}
