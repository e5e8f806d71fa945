package rod

import (
	"log/slog"
	"time"

	"github.com/eraeco/rod/graph"
	"github.com/eraeco/rod/utils"
)

type Options struct {
	// FlushInterval is how often the background task writes dirty
	// nodes back to the store.
	FlushInterval time.Duration
	// DeferralInterval is how often queued future-timestamped merges
	// are checked against the clock.
	DeferralInterval time.Duration
	// NameCacheSize bounds the name->id resolution cache.
	NameCacheSize int

	Clock  graph.Clock
	Logger utils.Logger
}

func (o *Options) SetDefaults() {
	if o.FlushInterval == 0 {
		o.FlushInterval = 2 * time.Second
	}
	if o.DeferralInterval == 0 {
		o.DeferralInterval = time.Second
	}
	if o.NameCacheSize == 0 {
		o.NameCacheSize = 10000
	}
	if o.Clock == nil {
		o.Clock = graph.SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
}
