package index

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/neuronidx/internal/stablelog"
	"github.com/hupe1980/neuronidx/neuron"
	"github.com/hupe1980/neuronidx/segment"
)

// MaxKnownNeuronNameSize is the largest known neuron name, in bytes.
// Callers enforce it; the index reports names that exceed it.
const MaxKnownNeuronNameSize = 200

var (
	ErrKnownNeuronAlreadyExists        = errors.New("known neuron name already exists")
	ErrKnownNeuronNameExceedsSizeLimit = errors.New("known neuron name exceeds size limit")
	ErrKnownNeuronAlreadyAbsent        = errors.New("known neuron name already absent")
)

// NameExistsWithDifferentNeuronIDError is returned when removing a name that
// is indexed for another neuron.
type NameExistsWithDifferentNeuronIDError struct {
	Name       string
	ExistingID neuron.NeuronID
}

func (e *NameExistsWithDifferentNeuronIDError) Error() string {
	return fmt.Sprintf("known neuron name %s exists for a different neuron id %d", e.Name, e.ExistingID)
}

// KnownNeuronIndex maps the unique names of known neurons to their ids.
type KnownNeuronIndex struct {
	log    *stablelog.Log
	nameID map[string]neuron.NeuronID
}

// NewKnownNeuronIndex opens the index stored in seg.
func NewKnownNeuronIndex(seg segment.Segment) (*KnownNeuronIndex, error) {
	idx := &KnownNeuronIndex{nameID: make(map[string]neuron.NeuronID)}

	log, err := stablelog.Open(seg, idx.replay)
	if err != nil {
		return nil, fmt.Errorf("open known neuron index: %w", err)
	}
	idx.log = log
	return idx, nil
}

func (idx *KnownNeuronIndex) replay(rec stablelog.Record) error {
	name := string(rec.Key)
	switch rec.Type {
	case stablelog.RecordTypePut:
		id, err := decodeNeuronID(rec.Value)
		if err != nil {
			return err
		}
		idx.nameID[name] = id
	case stablelog.RecordTypeDelete:
		delete(idx.nameID, name)
	}
	return nil
}

// AddKnownNeuron indexes name for id.
func (idx *KnownNeuronIndex) AddKnownNeuron(name string, id neuron.NeuronID) error {
	if _, ok := idx.nameID[name]; ok {
		return ErrKnownNeuronAlreadyExists
	}
	if len(name) > MaxKnownNeuronNameSize {
		return ErrKnownNeuronNameExceedsSizeLimit
	}
	if err := idx.log.Put([]byte(name), encodeNeuronID(id)); err != nil {
		return err
	}
	idx.nameID[name] = id
	return nil
}

// RemoveKnownNeuron deletes name if it is indexed for id.
func (idx *KnownNeuronIndex) RemoveKnownNeuron(name string, id neuron.NeuronID) error {
	existing, ok := idx.nameID[name]
	if !ok {
		return ErrKnownNeuronAlreadyAbsent
	}
	if existing != id {
		return &NameExistsWithDifferentNeuronIDError{Name: name, ExistingID: existing}
	}
	if err := idx.log.Delete([]byte(name)); err != nil {
		return err
	}
	delete(idx.nameID, name)
	return nil
}

// GetNeuronIDByName looks up the neuron carrying name.
func (idx *KnownNeuronIndex) GetNeuronIDByName(name string) (neuron.NeuronID, bool) {
	id, ok := idx.nameID[name]
	return id, ok
}

// ContainsName reports whether name is taken.
func (idx *KnownNeuronIndex) ContainsName(name string) bool {
	_, ok := idx.nameID[name]
	return ok
}

// ListNeuronIDs returns the ids of all known neurons, ascending.
func (idx *KnownNeuronIndex) ListNeuronIDs() []neuron.NeuronID {
	ids := make([]neuron.NeuronID, 0, len(idx.nameID))
	for _, id := range idx.nameID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of known neurons.
func (idx *KnownNeuronIndex) Len() int { return len(idx.nameID) }

// Compact rewrites the backing log with only the live names.
func (idx *KnownNeuronIndex) Compact() error {
	return idx.log.Rewrite(func(yield func(stablelog.Record) bool) {
		for name, id := range idx.nameID {
			rec := stablelog.Record{Type: stablelog.RecordTypePut, Key: []byte(name), Value: encodeNeuronID(id)}
			if !yield(rec) {
				return
			}
		}
	})
}

// AddNeuron implements NeuronIndex. Unnamed neurons are not indexed; most
// neurons are unnamed.
func (idx *KnownNeuronIndex) AddNeuron(n *neuron.Neuron) *Defect {
	name, ok := n.KnownNeuronName()
	if !ok {
		return nil
	}
	id := neuronID(n)

	err := idx.AddKnownNeuron(name, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrKnownNeuronAlreadyExists):
		return &Defect{Index: KindKnownNeuron, Reason: fmt.Sprintf(
			"Failed to add neuron %d to known neuron index because the known neuron name %s already exists", id, name)}
	case errors.Is(err, ErrKnownNeuronNameExceedsSizeLimit):
		return &Defect{Index: KindKnownNeuron, Reason: fmt.Sprintf(
			"Failed to add neuron %d to known neuron index because the known neuron name %s exceeds size limit", id, name)}
	default:
		return &Defect{Index: KindKnownNeuron, Reason: fmt.Sprintf(
			"Failed to add neuron %d to known neuron index: %v", id, err)}
	}
}

// RemoveNeuron implements NeuronIndex.
func (idx *KnownNeuronIndex) RemoveNeuron(n *neuron.Neuron) *Defect {
	name, ok := n.KnownNeuronName()
	if !ok {
		return nil
	}
	id := neuronID(n)

	err := idx.RemoveKnownNeuron(name, id)
	var different *NameExistsWithDifferentNeuronIDError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrKnownNeuronAlreadyAbsent):
		return &Defect{Index: KindKnownNeuron, Reason: fmt.Sprintf(
			"Known neuron name %s cannot be removed as it does not exist", name)}
	case errors.As(err, &different):
		return &Defect{Index: KindKnownNeuron, Reason: fmt.Sprintf(
			"Known neuron name %s exists for a different neuron id %d", name, different.ExistingID)}
	default:
		return &Defect{Index: KindKnownNeuron, Reason: fmt.Sprintf(
			"Failed to remove neuron %d from known neuron index: %v", id, err)}
	}
}

// UpdateNeuron implements NeuronIndex. Adding, removing and renaming all
// reduce to remove-then-add when the names differ.
func (idx *KnownNeuronIndex) UpdateNeuron(oldNeuron, newNeuron *neuron.Neuron) []Defect {
	oldName, oldOK := oldNeuron.KnownNeuronName()
	newName, newOK := newNeuron.KnownNeuronName()
	if oldOK == newOK && oldName == newName {
		return nil
	}
	return combineDefects(idx.RemoveNeuron(oldNeuron), idx.AddNeuron(newNeuron))
}

// Segment returns the segment backing the index.
func (idx *KnownNeuronIndex) Segment() segment.Segment { return idx.log.Segment() }
