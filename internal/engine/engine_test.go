package engine

import (
	"context"
	"testing"
	"time"

	"PairWatch/internal/analysis"
	"PairWatch/internal/buffer"
	"PairWatch/internal/feed"
	"PairWatch/internal/model"
)

func seededBook(t *testing.T) *buffer.PairBook {
	t.Helper()
	book := buffer.NewPairBook("ES", "BTC", 200)
	book.Backfill(buffer.SeriesA, feed.GenerateMockBars(5800, 120))
	book.Backfill(buffer.SeriesB, feed.GenerateMockBars(97000, 120))
	return book
}

func TestEngine_NotifyDrivesCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := New(seededBook(t), analysis.DefaultOptions("ES", "BTC"), nil)
	if err := eng.Start(ctx, "0 0 0 1 1 *"); err != nil {
		t.Fatal(err)
	}
	results, cancelSub := eng.Subscribe()
	defer cancelSub()

	eng.Notify()
	select {
	case res := <-results:
		for _, tf := range analysis.DefaultTimeframes {
			if _, ok := res[tf.Label]; !ok {
				t.Errorf("result missing timeframe %q", tf.Label)
			}
		}
		// Both mock series drift upward together, so the native resolution
		// should report a real coefficient.
		if res["1m"].PValue == 1 && res["1m"].Correlation == 0 {
			t.Error("expected a computed 1m result from 120 aligned bars")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no analysis cycle completed after Notify")
	}
}

func TestEngine_SnapshotIsCopy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := New(seededBook(t), analysis.DefaultOptions("ES", "BTC"), nil)
	if err := eng.Start(ctx, "0 0 0 1 1 *"); err != nil {
		t.Fatal(err)
	}
	results, cancelSub := eng.Subscribe()
	defer cancelSub()

	eng.Notify()
	select {
	case <-results:
	case <-time.After(3 * time.Second):
		t.Fatal("no analysis cycle completed")
	}

	snap := eng.Snapshot()
	snap["1m"] = model.Undefined()
	snap["bogus"] = model.Undefined()

	fresh := eng.Snapshot()
	if _, ok := fresh["bogus"]; ok {
		t.Error("mutating a snapshot leaked into the engine state")
	}
}

func TestEngine_SubscribeCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := New(seededBook(t), analysis.DefaultOptions("ES", "BTC"), nil)
	if err := eng.Start(ctx, "0 0 0 1 1 *"); err != nil {
		t.Fatal(err)
	}

	results, cancelSub := eng.Subscribe()
	cancelSub()
	if _, ok := <-results; ok {
		t.Error("expected channel to be closed after cancel")
	}
	// Double cancel must not panic.
	cancelSub()
}

func TestEngine_InvalidCronExpression(t *testing.T) {
	eng := New(seededBook(t), analysis.DefaultOptions("ES", "BTC"), nil)
	if err := eng.Start(context.Background(), "not a schedule"); err == nil {
		t.Error("expected error for a bad schedule")
	}
}
