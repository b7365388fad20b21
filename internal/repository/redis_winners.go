package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"live-auction/internal/biddingerrors"
	model "live-auction/internal/models"

	"github.com/redis/go-redis/v9"
)

const winnerKeyPrefix = "auction:winner:"

// RedisWinners implements WinnerDB with SETNX, so the create-once guard
// survives restarts of the authority.
type RedisWinners struct {
	Client *redis.Client
}

// NewRedisWinners builds the client and verifies the connection
func NewRedisWinners(ctx context.Context, addr, password string, db int) (*RedisWinners, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisWinners{Client: client}, nil
}

// Close releases the client
func (r *RedisWinners) Close() error {
	return r.Client.Close()
}

// SaveWinner records the winner unless one already exists
func (r *RedisWinners) SaveWinner(ctx context.Context, w model.Winner) (bool, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return false, fmt.Errorf("encode winner for auction %s: %w", w.AuctionID, err)
	}

	created, err := r.Client.SetNX(ctx, winnerKeyPrefix+w.AuctionID, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("save winner for auction %s: %w", w.AuctionID, err)
	}
	return created, nil
}

// GetWinner returns the recorded winner of an auction
func (r *RedisWinners) GetWinner(ctx context.Context, auctionID string) (model.Winner, error) {
	data, err := r.Client.Get(ctx, winnerKeyPrefix+auctionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, biddingerrors.ErrNoWinner)
	}
	if err != nil {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, err)
	}

	var w model.Winner
	if err := json.Unmarshal(data, &w); err != nil {
		return model.Winner{}, fmt.Errorf("decode winner for auction %s: %w", auctionID, err)
	}
	return w, nil
}
