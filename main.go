package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "live-auction/internal/biddingService"
	"live-auction/internal/catalog"
	"live-auction/internal/config"
	"live-auction/internal/hub"
	"live-auction/internal/ledger"
	model "live-auction/internal/models"
	"live-auction/internal/persist"
	"live-auction/internal/repository"
	"live-auction/internal/scheduler"
	"live-auction/internal/server"
	"live-auction/internal/validator"
	"live-auction/utils"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auctionDB, winnerDB, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open stores", map[string]any{"backend": cfg.StoreBackend, "error": err.Error()})
	}

	clock := clockwork.NewRealClock()
	bidLedger := ledger.New()
	auctions := catalog.New()

	appender := persist.NewAppender(auctionDB, persist.Options{
		Workers:   cfg.PersistWorkers,
		QueueSize: cfg.PersistQueueSize,
		Timeout:   cfg.PersistTimeout,
	})

	biddingSvc := bidding.NewBiddingService(bidding.Deps{
		Repo:      auctionDB,
		Winners:   winnerDB,
		Catalog:   auctions,
		Ledger:    bidLedger,
		Validator: validator.New(cfg.MinIncrement),
		Appender:  appender,
		Clock:     clock,
	})
	if err := biddingSvc.WarmStart(ctx); err != nil {
		utils.Fatal("warm start failed", map[string]any{"error": err.Error()})
	}
	if cfg.SeedDemo && len(biddingSvc.ListAuctions()) == 0 {
		prepopulateAuctions(ctx, biddingSvc, clock.Now())
	}

	wsHub := hub.New(biddingSvc, biddingSvc, hub.Config{
		WriteTimeout:   cfg.WSWriteTimeout,
		ReadTimeout:    cfg.WSReadTimeout,
		PingInterval:   cfg.WSPingInterval,
		MaxMessageSize: cfg.WSMaxMessageSize,
		SendBuffer:     cfg.WSSendBuffer,
	})
	biddingSvc.PublishTo(wsHub)

	sched := scheduler.New(scheduler.Deps{
		Auctions:  auctions,
		Ledger:    bidLedger,
		Winners:   winnerDB,
		Publisher: wsHub,
		Clock:     clock,
		Interval:  cfg.TickInterval,
	})
	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	router := server.SetupRouter(biddingSvc, wsHub, clock)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{
			"addr":          srv.Addr,
			"store_backend": cfg.StoreBackend,
			"tick_interval": cfg.TickInterval.String(),
			"min_increment": cfg.MinIncrement.String(),
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Fatal("HTTP server failed", map[string]any{"error": err.Error()})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	utils.Info("received shutdown signal", map[string]any{"signal": sig.String()})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("HTTP server shutdown failed", map[string]any{"error": err.Error()})
	}

	cancel()
	<-schedDone
	wsHub.Close()
	appender.Close()
	closeStores()

	utils.Info("auction server shutdown complete", nil)
}

// openStores builds the record store and the winner store from configuration.
// The returned func releases whatever was opened.
func openStores(ctx context.Context, cfg config.Config) (repository.AuctionDB, repository.WinnerDB, func(), error) {
	var (
		auctionDB repository.AuctionDB
		winnerDB  repository.WinnerDB
		closers   []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreBackend {
	case config.BackendFile:
		repo, err := repository.OpenFileRepo(cfg.DBFile)
		if err != nil {
			return nil, nil, nil, err
		}
		auctionDB, winnerDB = repo, repo
	case config.BackendPostgres:
		repo, err := repository.OpenPostgresRepo(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		auctionDB, winnerDB = repo, repo
		closers = append(closers, repo.Close)
	default:
		repo := repository.NewMemoryRepo()
		auctionDB, winnerDB = repo, repo
		utils.Warn("using in-memory store, winner records are lost on restart", nil)
	}

	if cfg.WinnerBackend == config.WinnerBackendRedis {
		winners, err := repository.NewRedisWinners(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		winnerDB = winners
		closers = append(closers, func() {
			if err := winners.Close(); err != nil {
				utils.Warn("failed to close redis client", map[string]any{"error": err.Error()})
			}
		})
	}

	return auctionDB, winnerDB, closeAll, nil
}

// prepopulateAuctions adds sample auctions around now
func prepopulateAuctions(ctx context.Context, svc *bidding.BiddingService, now time.Time) {
	auctions := []model.Auction{
		{ID: "auction1", Name: "Vintage watch", Description: "Hand-wound, 1962", BasePrice: decimal.NewFromInt(100), StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)},
		{ID: "auction2", Name: "Oil painting", Description: "Harbour at dusk", BasePrice: decimal.NewFromInt(200), StartTime: now.Add(-time.Minute), EndTime: now.Add(5 * time.Minute)},
		{ID: "auction3", Name: "First edition", Description: "Signed copy", BasePrice: decimal.NewFromInt(150), StartTime: now.Add(10 * time.Minute), EndTime: now.Add(2 * time.Hour)},
	}

	for _, a := range auctions {
		if _, err := svc.CreateAuction(ctx, a); err != nil {
			utils.Warn("failed to seed auction", map[string]any{"auction_id": a.ID, "error": err.Error()})
		}
	}
}
