package neuronidx

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/neuronidx/index"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordRemove is called after each remove operation.
	RecordRemove(duration time.Duration, err error)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)

	// RecordDefect is called once per defect reported by an index.
	RecordDefect(kind index.Kind)

	// RecordCheckpoint is called after each checkpoint.
	// storedBytes is the total size of the blobs written.
	RecordCheckpoint(duration time.Duration, storedBytes int64, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)               {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)            {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)            {}
func (NoopMetricsCollector) RecordDefect(index.Kind)                      {}
func (NoopMetricsCollector) RecordCheckpoint(time.Duration, int64, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount          atomic.Int64
	AddErrors         atomic.Int64
	AddTotalNanos     atomic.Int64
	RemoveCount       atomic.Int64
	RemoveErrors      atomic.Int64
	RemoveTotalNanos  atomic.Int64
	UpdateCount       atomic.Int64
	UpdateErrors      atomic.Int64
	UpdateTotalNanos  atomic.Int64
	SubaccountDefects atomic.Int64
	PrincipalDefects  atomic.Int64
	FollowingDefects  atomic.Int64
	KnownDefects      atomic.Int64
	CheckpointCount   atomic.Int64
	CheckpointErrors  atomic.Int64
	CheckpointBytes   atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	record(&b.AddCount, &b.AddErrors, &b.AddTotalNanos, duration, err)
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	record(&b.RemoveCount, &b.RemoveErrors, &b.RemoveTotalNanos, duration, err)
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	record(&b.UpdateCount, &b.UpdateErrors, &b.UpdateTotalNanos, duration, err)
}

func record(count, errs, nanos *atomic.Int64, duration time.Duration, err error) {
	count.Add(1)
	nanos.Add(duration.Nanoseconds())
	if err != nil {
		errs.Add(1)
	}
}

// RecordDefect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDefect(kind index.Kind) {
	switch kind {
	case index.KindSubaccount:
		b.SubaccountDefects.Add(1)
	case index.KindPrincipal:
		b.PrincipalDefects.Add(1)
	case index.KindFollowing:
		b.FollowingDefects.Add(1)
	case index.KindKnownNeuron:
		b.KnownDefects.Add(1)
	}
}

// RecordCheckpoint implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpoint(_ time.Duration, storedBytes int64, err error) {
	b.CheckpointCount.Add(1)
	if err != nil {
		b.CheckpointErrors.Add(1)
		return
	}
	b.CheckpointBytes.Add(storedBytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:          b.AddCount.Load(),
		AddErrors:         b.AddErrors.Load(),
		AddAvgNanos:       avg(&b.AddTotalNanos, &b.AddCount),
		RemoveCount:       b.RemoveCount.Load(),
		RemoveErrors:      b.RemoveErrors.Load(),
		RemoveAvgNanos:    avg(&b.RemoveTotalNanos, &b.RemoveCount),
		UpdateCount:       b.UpdateCount.Load(),
		UpdateErrors:      b.UpdateErrors.Load(),
		UpdateAvgNanos:    avg(&b.UpdateTotalNanos, &b.UpdateCount),
		SubaccountDefects: b.SubaccountDefects.Load(),
		PrincipalDefects:  b.PrincipalDefects.Load(),
		FollowingDefects:  b.FollowingDefects.Load(),
		KnownDefects:      b.KnownDefects.Load(),
		CheckpointCount:   b.CheckpointCount.Load(),
		CheckpointErrors:  b.CheckpointErrors.Load(),
		CheckpointBytes:   b.CheckpointBytes.Load(),
	}
}

func avg(total, count *atomic.Int64) int64 {
	n := count.Load()
	if n == 0 {
		return 0
	}
	return total.Load() / n
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount          int64
	AddErrors         int64
	AddAvgNanos       int64
	RemoveCount       int64
	RemoveErrors      int64
	RemoveAvgNanos    int64
	UpdateCount       int64
	UpdateErrors      int64
	UpdateAvgNanos    int64
	SubaccountDefects int64
	PrincipalDefects  int64
	FollowingDefects  int64
	KnownDefects      int64
	CheckpointCount   int64
	CheckpointErrors  int64
	CheckpointBytes   int64
}

// Defects returns the total number of defects across all indexes.
func (s BasicMetricsStats) Defects() int64 {
	return s.SubaccountDefects + s.PrincipalDefects + s.FollowingDefects + s.KnownDefects
}
