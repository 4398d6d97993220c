package recorder

import (
	"time"

	"PairWatch/internal/model"
)

// Recorder persists per-cycle analysis results for offline inspection.
// The rolling bar buffers themselves are never persisted.
type Recorder interface {
	RecordCycle(ts time.Time, result model.MultiTimeframeResult) error
	Close() error
}
