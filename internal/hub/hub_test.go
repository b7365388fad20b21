package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/events"
	model "live-auction/internal/models"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func snapshotFixture() events.SnapshotPayload {
	return events.Snapshot(
		[]model.AuctionTimer{{AuctionID: "a1", Phase: model.PhasePresent, TimeLeft: model.TimeLeft{Hours: 1}}},
		map[string]model.Bid{"a1": {BidID: "b1", AuctionID: "a1", Amount: decimal.NewFromInt(100), Sequence: 1}},
	)
}

func newTestHub(t *testing.T) (*Hub, *MockBidSubmitter, *httptest.Server) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	submitter := NewMockBidSubmitter(ctrl)
	snapshots := NewMockSnapshotSource(ctrl)
	snapshots.EXPECT().Snapshot().Return(snapshotFixture()).AnyTimes()

	h := New(submitter, snapshots, Config{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return h, submitter, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) events.Envelope {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env events.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func waitForClients(t *testing.T, h *Hub, n int) {
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SnapshotOnConnect(t *testing.T) {
	t.Parallel()
	h, _, srv := newTestHub(t)

	conn := dial(t, srv)
	env := readEnvelope(t, conn)
	require.Equal(t, events.TypeSnapshot, env.Type)

	var snap events.SnapshotPayload
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.Len(t, snap.Timers, 1)
	require.Len(t, snap.HighestBids, 1)
	require.Equal(t, "b1", snap.HighestBids[0].Bid.BidID)
	waitForClients(t, h, 1)

	// JOIN asks for a fresh snapshot
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "JOIN"}))
	require.Equal(t, events.TypeSnapshot, readEnvelope(t, conn).Type)
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	t.Parallel()
	h, _, srv := newTestHub(t)

	a := dial(t, srv)
	b := dial(t, srv)
	readEnvelope(t, a)
	readEnvelope(t, b)
	waitForClients(t, h, 2)

	env, err := events.New(events.TypeAuctionEnded, events.AuctionEndedPayload{AuctionID: "a1"}, time.Now())
	require.NoError(t, err)
	h.Broadcast(env)

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEnvelope(t, conn)
		require.Equal(t, events.TypeAuctionEnded, got.Type)
		require.Equal(t, env.ID, got.ID)
	}
}

func TestHub_RejectionIsUnicast(t *testing.T) {
	t.Parallel()
	h, submitter, srv := newTestHub(t)

	sender := dial(t, srv)
	other := dial(t, srv)
	readEnvelope(t, sender)
	readEnvelope(t, other)
	waitForClients(t, h, 2)

	submitter.EXPECT().
		PlaceBid(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req model.BidRequest) (model.Bid, error) {
			if req.AuctionID != "a1" || req.BidderID != "u1" || !req.Amount.Equal(decimal.NewFromInt(80)) {
				return model.Bid{}, fmt.Errorf("unexpected request %+v", req)
			}
			return model.Bid{}, fmt.Errorf("service: %w", biddingerrors.BidTooLow(decimal.NewFromInt(100)))
		})

	require.NoError(t, sender.WriteJSON(map[string]any{
		"type": "SUBMIT_BID",
		"data": map[string]any{"auction_id": "a1", "bidder_id": "u1", "amount": 80},
	}))

	env := readEnvelope(t, sender)
	require.Equal(t, events.TypeBidRejected, env.Type)
	var p events.BidRejectedPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.Equal(t, biddingerrors.ReasonBidTooLow, p.Reason)
	require.Contains(t, p.Details, "100.00")
	require.Equal(t, "a1", p.AuctionID)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	require.Error(t, err, "rejections are never broadcast")
}

func TestHub_LegacyPlaceBidAccepted(t *testing.T) {
	t.Parallel()
	h, submitter, srv := newTestHub(t)

	conn := dial(t, srv)
	readEnvelope(t, conn)
	waitForClients(t, h, 1)

	accepted := make(chan model.BidRequest, 1)
	submitter.EXPECT().PlaceBid(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, req model.BidRequest) (model.Bid, error) {
		accepted <- req
		return model.Bid{BidID: "b2", AuctionID: req.AuctionID, Amount: req.Amount}, nil
	})

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "PLACE_BID",
		"data": map[string]any{"auction_id": "a1", "bidder_id": "u1", "amount": "150.25"},
	}))

	select {
	case req := <-accepted:
		require.True(t, req.Amount.Equal(decimal.RequireFromString("150.25")))
	case <-time.After(2 * time.Second):
		t.Fatal("bid never reached the submitter")
	}
}

func TestHub_MalformedMessage(t *testing.T) {
	t.Parallel()
	h, _, srv := newTestHub(t)

	conn := dial(t, srv)
	readEnvelope(t, conn)
	waitForClients(t, h, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"SUBMIT_BID"}`)))
	env := readEnvelope(t, conn)
	require.Equal(t, events.TypeBidRejected, env.Type)

	var p events.BidRejectedPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.Equal(t, biddingerrors.ReasonMalformedRequest, p.Reason)
}

func TestHub_DisconnectAndReconnect(t *testing.T) {
	t.Parallel()
	h, _, srv := newTestHub(t)

	conn := dial(t, srv)
	readEnvelope(t, conn)
	waitForClients(t, h, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, h, 0)

	again := dial(t, srv)
	require.Equal(t, events.TypeSnapshot, readEnvelope(t, again).Type)
	waitForClients(t, h, 1)
}

func TestHub_Close(t *testing.T) {
	t.Parallel()
	h, _, srv := newTestHub(t)

	conn := dial(t, srv)
	readEnvelope(t, conn)
	waitForClients(t, h, 1)

	h.Close()
	require.Equal(t, 0, h.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	// refused after close
	late := dial(t, srv)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	require.Error(t, err)
	require.Equal(t, 0, h.ClientCount())
	require.Equal(t, true, h.Stats()["closed"])
}

// Close returns only after a bid already being handled has finished, so the
// caller can drain persistence afterwards without losing it.
func TestHub_CloseWaitsForInFlightBid(t *testing.T) {
	t.Parallel()
	h, submitter, srv := newTestHub(t)

	conn := dial(t, srv)
	readEnvelope(t, conn)
	waitForClients(t, h, 1)

	entered := make(chan struct{})
	release := make(chan struct{})
	submitter.EXPECT().PlaceBid(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, req model.BidRequest) (model.Bid, error) {
		close(entered)
		<-release
		return model.Bid{BidID: "b1", AuctionID: req.AuctionID, Amount: req.Amount}, nil
	})

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "SUBMIT_BID",
		"data": map[string]any{"auction_id": "a1", "bidder_id": "u1", "amount": 150},
	}))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("bid never reached the submitter")
	}

	closed := make(chan struct{})
	go func() {
		h.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a bid was still being handled")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the bid finished")
	}
}

func TestHub_SlowClientEvicted(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	snapshots := NewMockSnapshotSource(ctrl)
	snapshots.EXPECT().Snapshot().Return(snapshotFixture())
	h := New(NewMockBidSubmitter(ctrl), snapshots, Config{SendBuffer: 1})

	c := &Client{id: "slow", hub: h, send: make(chan []byte, 1), first: make(chan []byte, 1)}
	require.True(t, h.Register(c))
	require.Len(t, c.first, 1)

	env, err := events.New(events.TypeTimersUpdated, events.TimersPayload{}, time.Now())
	require.NoError(t, err)
	h.Broadcast(env)
	require.Equal(t, 1, h.ClientCount())
	h.Broadcast(env)
	require.Equal(t, 0, h.ClientCount())

	// double remove is harmless
	h.Unregister(c)
	require.False(t, h.Send(c, env))
}
