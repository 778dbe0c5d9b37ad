package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/kafka"
)

// Publisher ships batches of events to Kafka.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector takes events from request handlers without blocking them. Run
// feeds each event to the aggregator and, when a publisher is set,
// forwards events to Kafka in batches.
type Collector struct {
	events        chan any
	aggregator    *Aggregator
	publisher     Publisher
	batchSize     int
	flushInterval time.Duration
	buffer        []kafka.Event
	dropped       atomic.Int64
	logger        *slog.Logger
}

// NewCollector returns a Collector. publisher may be nil.
func NewCollector(agg *Aggregator, publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Collector{
		events:        make(chan any, bufferSize),
		aggregator:    agg,
		publisher:     publisher,
		batchSize:     100,
		flushInterval: 5 * time.Second,
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

// Track queues event. When the buffer is full the event is dropped.
func (c *Collector) Track(event any) {
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Run processes events until ctx is cancelled, then drains what is queued
// and makes a final flush.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.events),
		"kafka", c.publisher != nil,
	)

	for {
		select {
		case event := <-c.events:
			c.handle(ctx, event)
		case <-ticker.C:
			c.flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
		drain:
			for {
				select {
				case event := <-c.events:
					c.handle(flushCtx, event)
				default:
					break drain
				}
			}
			c.flush(flushCtx)
			return nil
		}
	}
}

func (c *Collector) handle(ctx context.Context, event any) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	c.buffer = append(c.buffer, kafka.Event{Key: eventKey(event), Value: event})
	if len(c.buffer) >= c.batchSize {
		c.flush(ctx)
	}
}

func (c *Collector) flush(ctx context.Context) {
	if c.publisher == nil || len(c.buffer) == 0 {
		return
	}
	batch := c.buffer
	c.buffer = nil
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("analytics batch publish failed", "batch_size", len(batch), "error", err)
		// Keep failed events for the next flush, up to a bound.
		c.buffer = batch
		if limit := c.batchSize * 3; len(c.buffer) > limit {
			dropped := len(c.buffer) - limit
			c.buffer = c.buffer[dropped:]
			c.dropped.Add(int64(dropped))
			c.logger.Warn("analytics buffer overflow, events dropped", "dropped", dropped)
		}
		return
	}
	c.logger.Debug("analytics batch published", "events", len(batch))
}

func eventKey(event any) string {
	switch event.(type) {
	case SearchEvent:
		return "search"
	case IndexEvent:
		return "index"
	default:
		return "analytics"
	}
}
