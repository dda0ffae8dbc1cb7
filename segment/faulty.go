package segment

import (
	"errors"
	"sync"
)

// ErrInjected is the default error returned by a Faulty segment.
var ErrInjected = errors.New("segment: injected fault")

// Fault defines the failure behavior of a Faulty segment.
type Fault struct {
	// FailAfterWrites fails every write after this many succeeded. -1 disables.
	FailAfterWrites int64
	// FailOnGrow fails every Grow call.
	FailOnGrow bool
	// Err is returned for injected failures. Defaults to ErrInjected.
	Err error
}

// Faulty wraps a Segment and injects write and grow failures.
type Faulty struct {
	Segment

	mu      sync.Mutex
	fault   Fault
	written int64
}

// NewFaulty wraps seg with fault injection disabled.
func NewFaulty(seg Segment) *Faulty {
	return &Faulty{
		Segment: seg,
		fault:   Fault{FailAfterWrites: -1},
	}
}

// SetFault replaces the active fault and resets the write counter.
func (f *Faulty) SetFault(fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fault = fault
	f.written = 0
}

// Heal disables fault injection.
func (f *Faulty) Heal() {
	f.SetFault(Fault{FailAfterWrites: -1})
}

func (f *Faulty) err() error {
	if f.fault.Err != nil {
		return f.fault.Err
	}
	return ErrInjected
}

// WriteAt implements io.WriterAt.
func (f *Faulty) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	if f.fault.FailAfterWrites >= 0 && f.written >= f.fault.FailAfterWrites {
		err := f.err()
		f.mu.Unlock()
		return 0, err
	}
	f.written++
	f.mu.Unlock()

	return f.Segment.WriteAt(p, off)
}

// Grow implements Segment.
func (f *Faulty) Grow(pages int64) (int64, error) {
	f.mu.Lock()
	fail := f.fault.FailOnGrow
	err := f.err()
	f.mu.Unlock()

	if fail {
		return 0, err
	}
	return f.Segment.Grow(pages)
}
