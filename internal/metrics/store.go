package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// EventsByStatus is the number of stored events in each status.
	EventsByStatus = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events",
			Help:      "Number of stored events by status",
		},
		[]string{"status"},
	)

	StoreCollectErrors = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_collect_errors_total",
			Help:      "Total number of failed event store samplings",
		},
	)
)

// StoreCollector samples the event store on an interval.
type StoreCollector struct {
	store    storage.StatusCounter
	logger   zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewStoreCollector(store storage.StatusCounter, logger zerolog.Logger) *StoreCollector {
	return &StoreCollector{
		store:    store,
		logger:   logger.With().Str("component", "store_collector").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start blocks, sampling immediately and then every interval, until ctx is
// done or Stop is called.
func (c *StoreCollector) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.collect(ctx)

	for {
		select {
		case <-ticker.C:
			c.collect(ctx)
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *StoreCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *StoreCollector) collect(ctx context.Context) {
	if c.store == nil {
		return
	}

	counts, err := c.store.CountByStatus(ctx)
	if err != nil {
		StoreCollectErrors.Inc()
		c.logger.Warn().Err(err).Msg("event store sampling failed")
		return
	}
	for status, n := range counts {
		EventsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}
