package neuronidx

import (
	"log/slog"

	"github.com/hupe1980/neuronidx/internal/compress"
	"github.com/hupe1980/neuronidx/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Indexes construction.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &neuronidx.BasicMetricsCollector{}
//	idx := neuronidx.NewHeapBased(neuronidx.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Defects: %d\n", stats.AddCount, stats.Defects())
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := neuronidx.NewJSONLogger(slog.LevelInfo)
//	idx := neuronidx.NewHeapBased(neuronidx.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

// Compression selects how checkpoint images are stored.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZstd = compress.Zstd
)

type checkpointOptions struct {
	compression Compression
	prefix      string
	limits      resource.Config
	controller  *resource.Controller
}

// CheckpointOption configures Checkpoint and Restore.
type CheckpointOption func(*checkpointOptions)

// WithCompression sets the compression of checkpoint images. Defaults to
// CompressionZstd. Restore reads the compression from the manifest.
func WithCompression(c Compression) CheckpointOption {
	return func(o *checkpointOptions) {
		o.compression = c
	}
}

// WithPrefix stores the checkpoint under prefix in the blob store.
func WithPrefix(prefix string) CheckpointOption {
	return func(o *checkpointOptions) {
		o.prefix = prefix
	}
}

// WithIOLimit throttles blob transfers to bytesPerSec. 0 means unlimited.
func WithIOLimit(bytesPerSec int64) CheckpointOption {
	return func(o *checkpointOptions) {
		o.limits.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithConcurrency sets how many segment images are transferred at once.
// Defaults to one per index.
func WithConcurrency(n int) CheckpointOption {
	return func(o *checkpointOptions) {
		o.limits.MaxBackgroundWorkers = int64(n)
	}
}

// WithMemoryLimit bounds the bytes of segment images buffered at once.
// An image larger than the limit is still transferred, alone.
func WithMemoryLimit(bytes int64) CheckpointOption {
	return func(o *checkpointOptions) {
		o.limits.MemoryLimitBytes = bytes
	}
}

// WithResourceController shares c between checkpoints, overriding
// WithIOLimit, WithConcurrency and WithMemoryLimit.
func WithResourceController(c *resource.Controller) CheckpointOption {
	return func(o *checkpointOptions) {
		o.controller = c
	}
}

func applyCheckpointOptions(optFns []CheckpointOption) checkpointOptions {
	o := checkpointOptions{
		compression: CompressionZstd,
		limits: resource.Config{
			MaxBackgroundWorkers: numIndexes,
		},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.controller == nil {
		o.controller = resource.NewController(o.limits)
	}
	return o
}
