package recorder

import (
	"time"

	"PairWatch/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCycle(_ time.Time, _ model.MultiTimeframeResult) error { return nil }
func (n *NoopRecorder) Close() error                                                { return nil }
