package feed

import (
	"context"
	"time"

	"PairWatch/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	Price float64
	Bars  []model.OHLCV
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Backfill(_ context.Context, _ time.Duration, limit int) ([]model.OHLCV, error) {
	if m.Bars != nil {
		return m.Bars, nil
	}
	return GenerateMockBars(m.Price, limit), nil
}

// Stream replays the configured bars once, then blocks until cancellation.
func (m *MockSource) Stream(ctx context.Context, h Handler) error {
	for _, b := range m.Bars {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if h.OnBar != nil {
			h.OnBar(b)
		}
		if h.OnTick != nil {
			h.OnTick(b.Close)
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

// GenerateMockBars produces a gently trending minute-bar series around a
// base price, ending at the current minute.
func GenerateMockBars(basePrice float64, count int) []model.OHLCV {
	end := time.Now().UTC().Truncate(time.Minute)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-i) * time.Minute),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000,
		}
	}
	return bars
}
