package neuronidx

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/hupe1980/neuronidx/neuron"
)

// Logger wraps slog.Logger with neuron-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithNeuronID adds a neuron_id field to the logger.
func (l *Logger) WithNeuronID(id neuron.NeuronID) *Logger {
	return &Logger{
		Logger: l.Logger.With("neuron_id", uint64(id)),
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, n *neuron.Neuron, err error) {
	l.logOperation(ctx, "add", n, err)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, n *neuron.Neuron, err error) {
	l.logOperation(ctx, "remove", n, err)
}

// LogUpdate logs an update operation. n is the new version of the neuron.
func (l *Logger) LogUpdate(ctx context.Context, n *neuron.Neuron, err error) {
	l.logOperation(ctx, "update", n, err)
}

func (l *Logger) logOperation(ctx context.Context, op string, n *neuron.Neuron, err error) {
	log := l
	if n != nil && n.ID != nil {
		log = l.WithNeuronID(*n.ID)
	}

	var corrupted *CorruptedNeuronIndexesError
	switch {
	case err == nil:
		log.DebugContext(ctx, op+" completed")
	case errors.As(err, &corrupted):
		for _, d := range corrupted.Defects {
			log.WarnContext(ctx, op+" left index defect",
				"index", d.Index.String(),
				"reason", d.Reason,
			)
		}
	default:
		log.ErrorContext(ctx, op+" rejected",
			"error", err,
		)
	}
}

// LogCheckpoint logs a checkpoint operation.
func (l *Logger) LogCheckpoint(ctx context.Context, id uint64, storedBytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"checkpoint_id", id,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "checkpoint published",
			"checkpoint_id", id,
			"stored_bytes", storedBytes,
		)
	}
}
