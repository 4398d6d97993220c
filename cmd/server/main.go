package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"PairWatch/internal/analysis"
	"PairWatch/internal/buffer"
	"PairWatch/internal/config"
	"PairWatch/internal/engine"
	"PairWatch/internal/feed"
	"PairWatch/internal/model"
	"PairWatch/internal/recorder"
	"PairWatch/internal/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] PairWatch starting...")

	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] no .env file, using environment variables")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Data sources
	futures := feed.NewFuturesSource(cfg.Futures.Symbol, cfg.Futures.GatewayURL, cfg.Futures.StreamURL, cfg.Proxy)
	crypto := feed.NewBinanceSource(cfg.Crypto.Pair, cfg.Crypto.WSBase, cfg.Crypto.RESTBase, cfg.Proxy)
	log.Printf("[INFO] sources: %s (%s), %s (%s)",
		cfg.Futures.Symbol, futures.Name(), cfg.Crypto.Symbol, crypto.Name())

	// Pair book and startup backfill
	book := buffer.NewPairBook(cfg.Futures.Symbol, cfg.Crypto.Symbol, cfg.Buffer.Capacity)
	histA, histB := backfill(ctx, book, futures, crypto)
	contract := futures.ContractLabel(ctx)
	log.Printf("[INFO] active contract: %s", contract)

	// Analysis engine
	opts := analysis.DefaultOptions(cfg.Futures.Symbol, cfg.Crypto.Symbol)
	opts.MinLagCorr = cfg.Analysis.MinLagCorr
	opts.MinLagGain = cfg.Analysis.MinLagGain
	opts.MaxLag = cfg.Analysis.MaxLag
	eng := engine.New(book, opts, rec)
	if err := eng.Start(ctx, cfg.Analysis.RecomputeCron); err != nil {
		log.Fatalf("[FATAL] start engine: %v", err)
	}

	// Broadcast server
	srv, err := server.New(book, eng, contract, histA, histB)
	if err != nil {
		log.Fatalf("[FATAL] init server: %v", err)
	}
	results, cancelSub := eng.Subscribe()
	defer cancelSub()
	go func() {
		for res := range results {
			srv.PublishResult(res)
		}
	}()

	// Live streams
	go func() {
		err := crypto.Stream(ctx, feed.Handler{
			OnBar: func(bar model.OHLCV) {
				if book.AppendBar(buffer.SeriesB, bar) {
					eng.Notify()
					bar.Time = bar.AlignMinute()
					srv.PublishBar(cfg.Crypto.Symbol, bar)
				}
			},
			OnTick: func(price float64) {
				book.UpdateTick(buffer.SeriesB, price)
				srv.PublishTick(cfg.Crypto.Symbol, price)
			},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] crypto stream: %v", err)
		}
	}()
	go func() {
		err := futures.Stream(ctx, feed.Handler{
			OnPartial: func(bar model.OHLCV) {
				if completed, ok := book.MergePartial(buffer.SeriesA, bar); ok {
					eng.Notify()
					srv.PublishBar(cfg.Futures.Symbol, completed)
				}
			},
			OnTick: func(price float64) {
				book.UpdateTick(buffer.SeriesA, price)
				srv.PublishTick(cfg.Futures.Symbol, price)
			},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] futures stream: %v", err)
		}
	}()

	// HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming websocket responses
	}
	go func() {
		log.Printf("[INFO] dashboard: http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	log.Println("[INFO] PairWatch is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	log.Println("[INFO] PairWatch stopped")
}

// backfill pre-populates both buffers with intraday minute bars and returns
// the hourly history sets used for display. Failures are non-fatal; the
// buffers simply fill from the live stream.
func backfill(ctx context.Context, book *buffer.PairBook, futures, crypto feed.Source) (histA, histB []model.OHLCV) {
	fetchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if bars, err := crypto.Backfill(fetchCtx, time.Minute, 1440); err != nil {
		log.Printf("[WARN] %s intraday backfill: %v", crypto.Name(), err)
	} else {
		n := book.Backfill(buffer.SeriesB, bars)
		log.Printf("[INFO] %s backfill: %d bars", crypto.Name(), n)
	}
	if bars, err := futures.Backfill(fetchCtx, time.Minute, 1440); err != nil {
		log.Printf("[WARN] %s intraday backfill: %v", futures.Name(), err)
	} else {
		n := book.Backfill(buffer.SeriesA, bars)
		log.Printf("[INFO] %s backfill: %d bars", futures.Name(), n)
	}

	if bars, err := crypto.Backfill(fetchCtx, time.Hour, 168); err != nil {
		log.Printf("[WARN] %s historical fetch: %v", crypto.Name(), err)
	} else {
		histB = bars
	}
	if bars, err := futures.Backfill(fetchCtx, time.Hour, 168); err != nil {
		log.Printf("[WARN] %s historical fetch: %v", futures.Name(), err)
	} else {
		histA = bars
	}
	return histA, histB
}
