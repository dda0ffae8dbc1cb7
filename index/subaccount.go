package index

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/hupe1980/neuronidx/internal/stablelog"
	"github.com/hupe1980/neuronidx/neuron"
	"github.com/hupe1980/neuronidx/segment"
)

var (
	ErrSubaccountAlreadyExists = errors.New("subaccount already exists in the index")
	ErrSubaccountAlreadyAbsent = errors.New("subaccount already absent in the index")
	ErrSubaccountDifferentID   = errors.New("subaccount exists in the index with a different neuron id")
)

// SubaccountIndex maps each neuron subaccount to its neuron id.
// The mapping is one-to-one and is not expected to change for the lifetime
// of a neuron.
type SubaccountIndex struct {
	log          *stablelog.Log
	subaccountID map[neuron.Subaccount]neuron.NeuronID
}

// NewSubaccountIndex opens the index stored in seg.
func NewSubaccountIndex(seg segment.Segment) (*SubaccountIndex, error) {
	idx := &SubaccountIndex{subaccountID: make(map[neuron.Subaccount]neuron.NeuronID)}

	log, err := stablelog.Open(seg, idx.replay)
	if err != nil {
		return nil, fmt.Errorf("open subaccount index: %w", err)
	}
	idx.log = log
	return idx, nil
}

func (idx *SubaccountIndex) replay(rec stablelog.Record) error {
	sub, err := neuron.SubaccountFromBytes(rec.Key)
	if err != nil {
		return err
	}
	switch rec.Type {
	case stablelog.RecordTypePut:
		id, err := decodeNeuronID(rec.Value)
		if err != nil {
			return err
		}
		idx.subaccountID[sub] = id
	case stablelog.RecordTypeDelete:
		delete(idx.subaccountID, sub)
	}
	return nil
}

// AddNeuronSubaccount records that sub belongs to id.
func (idx *SubaccountIndex) AddNeuronSubaccount(id neuron.NeuronID, sub neuron.Subaccount) error {
	if existing, ok := idx.subaccountID[sub]; ok {
		return fmt.Errorf("%w: subaccount %s, neuron %d (existing neuron %d)", ErrSubaccountAlreadyExists, sub, id, existing)
	}
	if err := idx.log.Put(sub[:], encodeNeuronID(id)); err != nil {
		return fmt.Errorf("failed to add subaccount %s for neuron %d: %w", sub, id, err)
	}
	idx.subaccountID[sub] = id
	return nil
}

// RemoveNeuronSubaccount deletes the entry for sub if it belongs to id.
func (idx *SubaccountIndex) RemoveNeuronSubaccount(id neuron.NeuronID, sub neuron.Subaccount) error {
	existing, ok := idx.subaccountID[sub]
	if !ok {
		return fmt.Errorf("%w: subaccount %s, neuron %d", ErrSubaccountAlreadyAbsent, sub, id)
	}
	if existing != id {
		return fmt.Errorf("%w: subaccount %s, neuron %d, existing neuron %d", ErrSubaccountDifferentID, sub, id, existing)
	}
	if err := idx.log.Delete(sub[:]); err != nil {
		return fmt.Errorf("failed to remove subaccount %s for neuron %d: %w", sub, id, err)
	}
	delete(idx.subaccountID, sub)
	return nil
}

// GetNeuronIDBySubaccount looks up the neuron owning sub.
func (idx *SubaccountIndex) GetNeuronIDBySubaccount(sub neuron.Subaccount) (neuron.NeuronID, bool) {
	id, ok := idx.subaccountID[sub]
	return id, ok
}

// Contains reports whether sub is indexed.
func (idx *SubaccountIndex) Contains(sub neuron.Subaccount) bool {
	_, ok := idx.subaccountID[sub]
	return ok
}

// Len returns the number of indexed subaccounts.
func (idx *SubaccountIndex) Len() int { return len(idx.subaccountID) }

// Compact rewrites the backing log with only the live entries.
func (idx *SubaccountIndex) Compact() error {
	return idx.log.Rewrite(func(yield func(stablelog.Record) bool) {
		for sub, id := range idx.subaccountID {
			rec := stablelog.Record{Type: stablelog.RecordTypePut, Key: sub[:], Value: encodeNeuronID(id)}
			if !yield(rec) {
				return
			}
		}
	})
}

// Entries iterates over all (subaccount, neuron id) pairs in no particular order.
func (idx *SubaccountIndex) Entries() iter.Seq2[neuron.Subaccount, neuron.NeuronID] {
	return maps.All(idx.subaccountID)
}

// AddNeuron implements NeuronIndex.
func (idx *SubaccountIndex) AddNeuron(n *neuron.Neuron) *Defect {
	if err := idx.AddNeuronSubaccount(neuronID(n), subaccount(n)); err != nil {
		return &Defect{Index: KindSubaccount, Reason: err.Error()}
	}
	return nil
}

// RemoveNeuron implements NeuronIndex.
func (idx *SubaccountIndex) RemoveNeuron(n *neuron.Neuron) *Defect {
	if err := idx.RemoveNeuronSubaccount(neuronID(n), subaccount(n)); err != nil {
		return &Defect{Index: KindSubaccount, Reason: err.Error()}
	}
	return nil
}

// UpdateNeuron implements NeuronIndex. The subaccount of a neuron never
// changes, which the caller has already checked, so there is nothing to do.
func (idx *SubaccountIndex) UpdateNeuron(_, _ *neuron.Neuron) []Defect {
	return nil
}

// Segment returns the segment backing the index.
func (idx *SubaccountIndex) Segment() segment.Segment { return idx.log.Segment() }
