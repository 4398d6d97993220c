package feed

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"PairWatch/internal/model"
)

// Handler receives events from a streaming source. Callbacks left nil are
// simply not invoked.
type Handler struct {
	// OnBar fires exactly once per completed sampling interval.
	OnBar func(model.OHLCV)
	// OnPartial fires for sub-interval updates of the pending bar; the
	// consumer is responsible for merging them into minute bars.
	OnPartial func(model.OHLCV)
	// OnTick fires for raw trade prices, for display only.
	OnTick func(price float64)
}

// Source produces OHLCV bars and price ticks for one series. Backfill is
// called once at startup to pre-populate the buffer; Stream then runs until
// the context is cancelled, reconnecting internally on transient errors.
type Source interface {
	Name() string
	Backfill(ctx context.Context, barSize time.Duration, limit int) ([]model.OHLCV, error)
	Stream(ctx context.Context, h Handler) error
}

// Reconnect backoff bounds shared by the streaming clients.
const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 5 * time.Second
)

func nextBackoff(cur time.Duration) time.Duration {
	if cur <= 0 {
		return minBackoff
	}
	cur *= 2
	if cur > maxBackoff {
		cur = maxBackoff
	}
	return cur
}

// newHTTPClient builds an HTTP client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
