package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS auctions (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	base_price  NUMERIC NOT NULL,
	start_time  TIMESTAMPTZ NOT NULL,
	end_time    TIMESTAMPTZ NOT NULL,
	image_url   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS bids (
	bid_id     TEXT PRIMARY KEY,
	auction_id TEXT NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
	bidder_id  TEXT NOT NULL,
	amount     NUMERIC NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	sequence   BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS bids_auction_idx ON bids (auction_id, created_at);
CREATE TABLE IF NOT EXISTS auction_winners (
	auction_id TEXT PRIMARY KEY,
	bid_id     TEXT,
	bidder_id  TEXT,
	amount     NUMERIC,
	created_at TIMESTAMPTZ,
	decided_at TIMESTAMPTZ NOT NULL
);`

// PostgresRepo implements AuctionDB and WinnerDB on a pgx connection pool
type PostgresRepo struct {
	Pool *pgxpool.Pool
}

// OpenPostgresRepo connects, pings and makes sure the schema exists
func OpenPostgresRepo(ctx context.Context, dsn string) (*PostgresRepo, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: bootstrap schema: %w", err)
	}
	return &PostgresRepo{Pool: pool}, nil
}

// Close releases the pool
func (r *PostgresRepo) Close() {
	r.Pool.Close()
}

func scanAuction(row pgx.Row) (model.Auction, error) {
	var (
		a     model.Auction
		price string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &price, &a.StartTime, &a.EndTime, &a.ImageURL); err != nil {
		return model.Auction{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.Auction{}, fmt.Errorf("parse base price %q: %w", price, err)
	}
	a.BasePrice = p
	return a, nil
}

// ListAuctions returns all auctions ordered by start time
func (r *PostgresRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, name, description, base_price::text, start_time, end_time, image_url
		FROM auctions ORDER BY start_time, id`)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	auctions := []model.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("list auctions: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// GetAuction returns a single auction
func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	row := r.Pool.QueryRow(ctx, `SELECT id, name, description, base_price::text, start_time, end_time, image_url
		FROM auctions WHERE id = $1`, auctionID)
	a, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// SaveAuction creates or replaces an auction
func (r *PostgresRepo) SaveAuction(ctx context.Context, a model.Auction) error {
	_, err := r.Pool.Exec(ctx, `INSERT INTO auctions (id, name, description, base_price, start_time, end_time, image_url)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			base_price = EXCLUDED.base_price, start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time, image_url = EXCLUDED.image_url`,
		a.ID, a.Name, a.Description, a.BasePrice.String(), a.StartTime, a.EndTime, a.ImageURL)
	if err != nil {
		return fmt.Errorf("save auction %s: %w", a.ID, err)
	}
	return nil
}

// DeleteAuction removes an auction; bids cascade
func (r *PostgresRepo) DeleteAuction(ctx context.Context, auctionID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM auctions WHERE id = $1`, auctionID)
	if err != nil {
		return fmt.Errorf("delete auction %s: %w", auctionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return nil
}

// ListBids returns all stored bids for an auction, oldest first
func (r *PostgresRepo) ListBids(ctx context.Context, auctionID string) ([]model.Bid, error) {
	rows, err := r.Pool.Query(ctx, `SELECT bid_id, auction_id, bidder_id, amount::text, created_at, sequence
		FROM bids WHERE auction_id = $1 ORDER BY created_at, sequence`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	bids := []model.Bid{}
	for rows.Next() {
		var (
			b      model.Bid
			amount string
			seq    int64
		)
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &amount, &b.CreatedAt, &seq); err != nil {
			return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		b.Sequence = uint64(seq)
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// AppendBid records an accepted bid
func (r *PostgresRepo) AppendBid(ctx context.Context, b model.Bid) error {
	_, err := r.Pool.Exec(ctx, `INSERT INTO bids (bid_id, auction_id, bidder_id, amount, created_at, sequence)
		VALUES ($1, $2, $3, $4::numeric, $5, $6) ON CONFLICT (bid_id) DO NOTHING`,
		b.BidID, b.AuctionID, b.BidderID, b.Amount.String(), b.CreatedAt, int64(b.Sequence))
	if err != nil {
		return fmt.Errorf("append bid %s for auction %s: %w", b.BidID, b.AuctionID, err)
	}
	return nil
}

// SaveWinner records the winner unless one already exists
func (r *PostgresRepo) SaveWinner(ctx context.Context, w model.Winner) (bool, error) {
	var bidID, bidderID, amount *string
	var createdAt *time.Time
	if w.Bid != nil {
		a := w.Bid.Amount.String()
		bidID, bidderID, amount, createdAt = &w.Bid.BidID, &w.Bid.BidderID, &a, &w.Bid.CreatedAt
	}

	tag, err := r.Pool.Exec(ctx, `INSERT INTO auction_winners (auction_id, bid_id, bidder_id, amount, created_at, decided_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6) ON CONFLICT (auction_id) DO NOTHING`,
		w.AuctionID, bidID, bidderID, amount, createdAt, w.DecidedAt)
	if err != nil {
		return false, fmt.Errorf("save winner for auction %s: %w", w.AuctionID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetWinner returns the recorded winner of an auction
func (r *PostgresRepo) GetWinner(ctx context.Context, auctionID string) (model.Winner, error) {
	var (
		w                       model.Winner
		bidID, bidderID, amount *string
		createdAt               *time.Time
	)
	err := r.Pool.QueryRow(ctx, `SELECT auction_id, bid_id, bidder_id, amount::text, created_at, decided_at
		FROM auction_winners WHERE auction_id = $1`, auctionID).
		Scan(&w.AuctionID, &bidID, &bidderID, &amount, &createdAt, &w.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, biddingerrors.ErrNoWinner)
	}
	if err != nil {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, err)
	}

	if bidID != nil {
		bid := model.Bid{BidID: *bidID, AuctionID: auctionID}
		if bidderID != nil {
			bid.BidderID = *bidderID
		}
		if amount != nil {
			if bid.Amount, err = decimal.NewFromString(*amount); err != nil {
				return model.Winner{}, fmt.Errorf("parse winner amount %q: %w", *amount, err)
			}
		}
		if createdAt != nil {
			bid.CreatedAt = *createdAt
		}
		w.Bid = &bid
	}
	return w, nil
}
