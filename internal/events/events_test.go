package events

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNew_Envelope(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bid := model.Bid{BidID: "b1", AuctionID: "a1", BidderID: "u1", Amount: decimal.RequireFromString("150.5"), Sequence: 2}

	env, err := New(TypeAuctionEnded, AuctionEndedPayload{AuctionID: "a1", Winner: &bid}, at)
	require.NoError(t, err)
	require.NotEmpty(t, env.ID)
	require.Equal(t, TypeAuctionEnded, env.Type)
	require.True(t, env.Timestamp.Equal(at))

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"type":"AUCTION_ENDED"`)
	require.Contains(t, string(raw), `"amount":150.5`)

	empty, err := New(TypeAuctionEnded, AuctionEndedPayload{AuctionID: "b1"}, at)
	require.NoError(t, err)
	require.JSONEq(t, `{"auction_id":"b1","winner":null}`, string(empty.Data))
}

func TestSnapshot_OrderedAndNeverNull(t *testing.T) {
	t.Parallel()
	s := Snapshot(nil, map[string]model.Bid{
		"b": {BidID: "2"},
		"a": {BidID: "1"},
	})
	require.NotNil(t, s.Timers)
	require.Len(t, s.HighestBids, 2)
	require.Equal(t, "a", s.HighestBids[0].AuctionID)

	raw, err := json.Marshal(Snapshot(nil, nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"timers":[],"highest_bids":[]}`, string(raw))
}

func TestRejection(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("validator: %w", biddingerrors.BidTooLow(decimal.NewFromInt(100)))
	r := Rejection("a1", err)
	require.Equal(t, biddingerrors.ReasonBidTooLow, r.Reason)
	require.Contains(t, r.Details, "100.00")
	require.Equal(t, "a1", r.AuctionID)
}

func TestDecode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    Type
		wantErr bool
	}{
		{name: "join", raw: `{"type":"JOIN"}`, want: TypeJoin},
		{name: "submit", raw: `{"type":"SUBMIT_BID","data":{"auction_id":"a1","bidder_id":"u1","amount":10}}`, want: TypeSubmitBid},
		{name: "legacy_place_bid", raw: `{"type":"PLACE_BID","data":{"auction_id":"a1","bidder_id":"u1","amount":10}}`, want: TypePlaceBid},
		{name: "unknown_type", raw: `{"type":"DANCE"}`, wantErr: true},
		{name: "not_json", raw: `hello`, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env, err := Decode([]byte(tc.raw))
			if tc.wantErr {
				require.ErrorIs(t, err, biddingerrors.ErrMalformedRequest)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, env.Type)
		})
	}
}

func TestDecodeSubmitBid(t *testing.T) {
	t.Parallel()

	env, err := Decode([]byte(`{"type":"SUBMIT_BID","data":{"auction_id":"a1","bidder_id":"u1","amount":"100.01"}}`))
	require.NoError(t, err)
	req, err := DecodeSubmitBid(env)
	require.NoError(t, err)
	require.Equal(t, "a1", req.AuctionID)
	require.Equal(t, "u1", req.BidderID)
	require.True(t, req.Amount.Equal(decimal.RequireFromString("100.01")))

	_, err = DecodeSubmitBid(Envelope{Type: TypeSubmitBid})
	require.ErrorIs(t, err, biddingerrors.ErrMalformedRequest)

	_, err = DecodeSubmitBid(Envelope{Type: TypeSubmitBid, Data: json.RawMessage(`{"amount":"abc"}`)})
	require.ErrorIs(t, err, biddingerrors.ErrMalformedRequest)
}
