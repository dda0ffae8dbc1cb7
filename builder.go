package neuronidx

import (
	"errors"
	"fmt"

	"github.com/hupe1980/neuronidx/index"
	"github.com/hupe1980/neuronidx/segment"
)

// ErrMissingSegment is returned by Build when a segment is nil.
var ErrMissingSegment = errors.New("missing segment")

// Builder assembles Indexes from one segment per index. Each segment must
// be owned exclusively by its index.
type Builder struct {
	Subaccount  segment.Segment
	Principal   segment.Segment
	Following   segment.Segment
	KnownNeuron segment.Segment
}

// Build opens every segment, replaying the entries already stored in it.
// Blank segments yield empty indexes.
func (b Builder) Build(opts ...Option) (*Indexes, error) {
	for _, s := range b.segments() {
		if s.seg == nil {
			return nil, fmt.Errorf("%w: %s index", ErrMissingSegment, s.kind)
		}
	}

	o := applyOptions(opts)

	subaccount, err := index.NewSubaccountIndex(b.Subaccount)
	if err != nil {
		return nil, err
	}
	principal, err := index.NewPrincipalIndex(b.Principal)
	if err != nil {
		return nil, err
	}
	following, err := index.NewStableFollowingIndex(b.Following)
	if err != nil {
		return nil, err
	}
	knownNeuron, err := index.NewKnownNeuronIndex(b.KnownNeuron)
	if err != nil {
		return nil, err
	}

	return &Indexes{
		subaccount:  subaccount,
		principal:   principal,
		following:   following,
		knownNeuron: knownNeuron,
		logger:      o.logger,
		metrics:     o.metricsCollector,
	}, nil
}

type kindSegment struct {
	kind index.Kind
	seg  segment.Segment
}

func (b Builder) segments() [numIndexes]kindSegment {
	return [numIndexes]kindSegment{
		{index.KindSubaccount, b.Subaccount},
		{index.KindPrincipal, b.Principal},
		{index.KindFollowing, b.Following},
		{index.KindKnownNeuron, b.KnownNeuron},
	}
}

func (b *Builder) set(kind index.Kind, seg segment.Segment) {
	switch kind {
	case index.KindSubaccount:
		b.Subaccount = seg
	case index.KindPrincipal:
		b.Principal = seg
	case index.KindFollowing:
		b.Following = seg
	case index.KindKnownNeuron:
		b.KnownNeuron = seg
	}
}

// NewHeapBased returns empty Indexes over fresh in-memory segments.
func NewHeapBased(opts ...Option) *Indexes {
	x, err := Builder{
		Subaccount:  segment.NewMemory(),
		Principal:   segment.NewMemory(),
		Following:   segment.NewMemory(),
		KnownNeuron: segment.NewMemory(),
	}.Build(opts...)
	if err != nil {
		// Blank memory segments always open.
		panic(err)
	}
	return x
}
