package feed

import (
	"context"
	"testing"
	"time"

	"PairWatch/internal/model"
)

func TestIntervalString(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
		wantErr  bool
	}{
		{time.Minute, "1m", false},
		{5 * time.Minute, "5m", false},
		{time.Hour, "1h", false},
		{4 * time.Hour, "4h", false},
		{30 * time.Second, "", true},
		{90 * time.Second, "", true},
	}
	for _, tt := range tests {
		got, err := intervalString(tt.d)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%v: expected error", tt.d)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", tt.d, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%v: expected %q, got %q", tt.d, tt.expected, got)
		}
	}
}

func TestParseKlineRow(t *testing.T) {
	row := []any{
		float64(1717236000000), "97000.5", "97100.0", "96950.25", "97050.75", "12.345",
		float64(1717236059999), "x", 1.0, "y", "z", "0",
	}
	bar, ok := parseKlineRow(row)
	if !ok {
		t.Fatal("expected valid kline row to parse")
	}
	if !bar.Time.Equal(time.UnixMilli(1717236000000).UTC()) {
		t.Errorf("unexpected time %v", bar.Time)
	}
	if bar.Open != 97000.5 || bar.High != 97100.0 || bar.Low != 96950.25 || bar.Close != 97050.75 || bar.Volume != 12.345 {
		t.Errorf("unexpected bar: %+v", bar)
	}

	if _, ok := parseKlineRow([]any{float64(0), "1", "2"}); ok {
		t.Error("expected short row to be rejected")
	}
	if _, ok := parseKlineRow([]any{"not-a-time", "1", "2", "3", "4", "5"}); ok {
		t.Error("expected bad timestamp to be rejected")
	}
	if _, ok := parseKlineRow([]any{float64(0), "1", "oops", "3", "4", "5"}); ok {
		t.Error("expected bad price to be rejected")
	}
}

func TestParseKlineFields(t *testing.T) {
	var msg klineMessage
	msg.Kline.OpenTime = 1717236000000
	msg.Kline.Open = "100"
	msg.Kline.High = "101"
	msg.Kline.Low = "99"
	msg.Kline.Close = "100.5"
	msg.Kline.Volume = "7"

	bar, ok := parseKlineFields(msg)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if bar.Close != 100.5 || bar.Volume != 7 {
		t.Errorf("unexpected bar: %+v", bar)
	}

	msg.Kline.Low = "not-a-number"
	if _, ok := parseKlineFields(msg); ok {
		t.Error("expected parse failure for a malformed field")
	}
}

func TestGatewayBarConversion(t *testing.T) {
	g := gatewayBar{Time: 1717236000, Open: 5800, High: 5801.5, Low: 5799, Close: 5800.25, Volume: 42}
	bar := g.toBar()
	if !bar.Time.Equal(time.Unix(1717236000, 0).UTC()) {
		t.Errorf("unexpected time %v", bar.Time)
	}
	if bar.Close != 5800.25 || bar.Volume != 42 {
		t.Errorf("unexpected bar: %+v", bar)
	}
}

func TestNextBackoff(t *testing.T) {
	b := nextBackoff(0)
	if b != minBackoff {
		t.Errorf("first backoff = %v", b)
	}
	for i := 0; i < 10; i++ {
		b = nextBackoff(b)
	}
	if b != maxBackoff {
		t.Errorf("backoff should cap at %v, got %v", maxBackoff, b)
	}
}

func TestMockSource_StreamReplaysBars(t *testing.T) {
	bars := GenerateMockBars(100, 5)
	src := &MockSource{Bars: bars}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var gotBars []model.OHLCV
	var gotTicks []float64
	replayed := make(chan struct{})
	go func() {
		// Cancel once everything is replayed; Stream blocks afterwards.
		<-replayed
		cancel()
	}()
	err := src.Stream(ctx, Handler{
		OnBar: func(b model.OHLCV) {
			gotBars = append(gotBars, b)
			if len(gotBars) == len(bars) {
				close(replayed)
			}
		},
		OnTick: func(p float64) { gotTicks = append(gotTicks, p) },
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(gotBars) != 5 || len(gotTicks) != 5 {
		t.Fatalf("expected 5 bars and ticks, got %d/%d", len(gotBars), len(gotTicks))
	}
	if gotTicks[0] != gotBars[0].Close {
		t.Errorf("tick should mirror the bar close: %v vs %v", gotTicks[0], gotBars[0].Close)
	}
}

func TestGenerateMockBars(t *testing.T) {
	bars := GenerateMockBars(5800, 10)
	if len(bars) != 10 {
		t.Fatalf("expected 10 bars, got %d", len(bars))
	}
	for i, b := range bars {
		if !b.Valid() {
			t.Errorf("bar %d invalid: %+v", i, b)
		}
		if i > 0 && !bars[i-1].Time.Before(b.Time) {
			t.Errorf("bars out of order at %d", i)
		}
		if b.Low > b.Close || b.High < b.Close {
			t.Errorf("bar %d violates high/low bounds: %+v", i, b)
		}
	}
}
