// Package consumer applies file-change events read from Kafka to the
// index, so an external watcher or CI job can keep a server current.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/metrics"
)

const (
	OpAdd    = "add"
	OpChange = "change"
	OpUnlink = "unlink"
)

// FileEvent is the message format on the file-events topic. Relative paths
// are resolved against the project root.
type FileEvent struct {
	Path string `json:"path"`
	Op   string `json:"op"`
}

// Indexer is the part of the engine the consumer drives.
type Indexer interface {
	UpdateFile(path string) error
	RemoveFile(path string) error
}

type Tracker interface {
	Track(event any)
}

type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Run blocks until ctx is cancelled.
func (ic *IndexConsumer) Run(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Run(ctx)
}

// HandleMessage returns a handler that applies each FileEvent to ix.
// Events that cannot be decoded, name an unknown op, or point outside root
// are logged and committed. An engine failure is returned so the message
// is not committed. m and tracker may be nil.
func HandleMessage(ix Indexer, root string, m *metrics.Metrics, tracker Tracker) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[FileEvent](value)
		if err != nil {
			logger.Error("failed to decode file event", "error", err, "key", string(key))
			return nil
		}
		path, ok := resolve(root, event.Path)
		if !ok {
			logger.Warn("file event outside project root", "path", event.Path, "root", root)
			return nil
		}

		start := time.Now()
		var op string
		switch event.Op {
		case OpAdd, OpChange:
			op = "update"
			err = ix.UpdateFile(path)
		case OpUnlink:
			op = "remove"
			err = ix.RemoveFile(path)
		default:
			logger.Warn("unknown file event op", "op", event.Op, "path", event.Path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("applying %s event for %s: %w", event.Op, path, err)
		}

		m.FileEvent("kafka", event.Op)
		if tracker != nil {
			tracker.Track(analytics.IndexEvent{
				Type:      analytics.EventIndex,
				Op:        op,
				Source:    "kafka",
				Path:      path,
				LatencyMs: time.Since(start).Milliseconds(),
				Timestamp: time.Now().UTC(),
			})
		}
		logger.Debug("file event applied", "op", event.Op, "path", path)
		return nil
	}
}

// resolve makes path absolute against root and rejects anything that
// escapes it. A relative root is taken from the working directory. An
// empty root accepts any absolute path.
func resolve(root, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if root == "" {
		return filepath.Clean(path), filepath.IsAbs(path)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
