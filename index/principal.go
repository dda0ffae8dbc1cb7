package index

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/neuronidx/internal/stablelog"
	"github.com/hupe1980/neuronidx/neuron"
	"github.com/hupe1980/neuronidx/segment"
)

// PrincipalIndex records which neurons grant special permissions (control or
// hot key) to each principal.
type PrincipalIndex struct {
	log     *stablelog.Log
	neurons map[neuron.PrincipalID]*roaring64.Bitmap
	pairs   int
}

// NewPrincipalIndex opens the index stored in seg.
func NewPrincipalIndex(seg segment.Segment) (*PrincipalIndex, error) {
	idx := &PrincipalIndex{neurons: make(map[neuron.PrincipalID]*roaring64.Bitmap)}

	log, err := stablelog.Open(seg, idx.replay)
	if err != nil {
		return nil, fmt.Errorf("open principal index: %w", err)
	}
	idx.log = log
	return idx, nil
}

func (idx *PrincipalIndex) replay(rec stablelog.Record) error {
	p, id, err := decodePrincipalKey(rec.Key)
	if err != nil {
		return err
	}
	switch rec.Type {
	case stablelog.RecordTypePut:
		idx.insert(p, id)
	case stablelog.RecordTypeDelete:
		idx.remove(p, id)
	}
	return nil
}

func (idx *PrincipalIndex) contains(p neuron.PrincipalID, id neuron.NeuronID) bool {
	bm, ok := idx.neurons[p]
	return ok && bm.Contains(uint64(id))
}

func (idx *PrincipalIndex) insert(p neuron.PrincipalID, id neuron.NeuronID) {
	bm, ok := idx.neurons[p]
	if !ok {
		bm = roaring64.New()
		idx.neurons[p] = bm
	}
	if bm.CheckedAdd(uint64(id)) {
		idx.pairs++
	}
}

func (idx *PrincipalIndex) remove(p neuron.PrincipalID, id neuron.NeuronID) {
	bm, ok := idx.neurons[p]
	if !ok {
		return
	}
	if bm.CheckedRemove(uint64(id)) {
		idx.pairs--
	}
	if bm.IsEmpty() {
		delete(idx.neurons, p)
	}
}

// AddNeuronIDPrincipalID records that p has special permissions on id.
// It reports false without writing if the pair is already present.
func (idx *PrincipalIndex) AddNeuronIDPrincipalID(id neuron.NeuronID, p neuron.PrincipalID) (bool, error) {
	if idx.contains(p, id) {
		return false, nil
	}
	if err := idx.log.Put(principalKey(p, id), nil); err != nil {
		return false, err
	}
	idx.insert(p, id)
	return true, nil
}

// RemoveNeuronIDPrincipalID deletes the pair. It reports false without
// writing if the pair is already absent.
func (idx *PrincipalIndex) RemoveNeuronIDPrincipalID(id neuron.NeuronID, p neuron.PrincipalID) (bool, error) {
	if !idx.contains(p, id) {
		return false, nil
	}
	if err := idx.log.Delete(principalKey(p, id)); err != nil {
		return false, err
	}
	idx.remove(p, id)
	return true, nil
}

// GetNeuronIDs returns the neurons p has special permissions on, ascending.
func (idx *PrincipalIndex) GetNeuronIDs(p neuron.PrincipalID) []neuron.NeuronID {
	bm, ok := idx.neurons[p]
	if !ok {
		return nil
	}
	ids := make([]neuron.NeuronID, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, neuron.NeuronID(it.Next()))
	}
	return ids
}

// Len returns the number of (principal, neuron) pairs.
func (idx *PrincipalIndex) Len() int { return idx.pairs }

// Compact rewrites the backing log with only the live pairs.
func (idx *PrincipalIndex) Compact() error {
	return idx.log.Rewrite(func(yield func(stablelog.Record) bool) {
		for p, bm := range idx.neurons {
			it := bm.Iterator()
			for it.HasNext() {
				key := principalKey(p, neuron.NeuronID(it.Next()))
				if !yield(stablelog.Record{Type: stablelog.RecordTypePut, Key: key}) {
					return
				}
			}
		}
	})
}

// AddNeuronIDPrincipalIDs adds every principal for id and returns the ones
// that were already present. Storage failures are joined into err; the
// remaining principals are still attempted.
func AddNeuronIDPrincipalIDs(idx *PrincipalIndex, id neuron.NeuronID, principals []neuron.PrincipalID) (alreadyPresent []neuron.PrincipalID, err error) {
	var errs []error
	for _, p := range principals {
		added, addErr := idx.AddNeuronIDPrincipalID(id, p)
		switch {
		case addErr != nil:
			errs = append(errs, fmt.Errorf("principal %s: %w", p, addErr))
		case !added:
			alreadyPresent = append(alreadyPresent, p)
		}
	}
	return alreadyPresent, errors.Join(errs...)
}

// RemoveNeuronIDPrincipalIDs removes every principal for id and returns the
// ones that were already absent.
func RemoveNeuronIDPrincipalIDs(idx *PrincipalIndex, id neuron.NeuronID, principals []neuron.PrincipalID) (alreadyAbsent []neuron.PrincipalID, err error) {
	var errs []error
	for _, p := range principals {
		removed, removeErr := idx.RemoveNeuronIDPrincipalID(id, p)
		switch {
		case removeErr != nil:
			errs = append(errs, fmt.Errorf("principal %s: %w", p, removeErr))
		case !removed:
			alreadyAbsent = append(alreadyAbsent, p)
		}
	}
	return alreadyAbsent, errors.Join(errs...)
}

func principalDefect(principals []neuron.PrincipalID, state string, id neuron.NeuronID, err error) *Defect {
	var reason string
	if len(principals) > 0 {
		reason = fmt.Sprintf("Principals %v already %s for neuron %d", principals, state, id)
	}
	if err != nil {
		if reason != "" {
			reason += "; "
		}
		reason += fmt.Sprintf("storage failure for neuron %d: %v", id, err)
	}
	if reason == "" {
		return nil
	}
	return &Defect{Index: KindPrincipal, Reason: reason}
}

// AddNeuron implements NeuronIndex.
func (idx *PrincipalIndex) AddNeuron(n *neuron.Neuron) *Defect {
	id := neuronID(n)
	present, err := AddNeuronIDPrincipalIDs(idx, id, n.PrincipalIDsWithSpecialPermissions())
	return principalDefect(present, "present", id, err)
}

// RemoveNeuron implements NeuronIndex.
func (idx *PrincipalIndex) RemoveNeuron(n *neuron.Neuron) *Defect {
	id := neuronID(n)
	absent, err := RemoveNeuronIDPrincipalIDs(idx, id, n.PrincipalIDsWithSpecialPermissions())
	return principalDefect(absent, "absent", id, err)
}

// UpdateNeuron implements NeuronIndex. Only principals that differ between
// old and new are written; segment writes are the dominant cost.
func (idx *PrincipalIndex) UpdateNeuron(oldNeuron, newNeuron *neuron.Neuron) []Defect {
	id := neuronID(oldNeuron)
	toRemove, toAdd := diff(
		oldNeuron.PrincipalIDsWithSpecialPermissions(),
		newNeuron.PrincipalIDsWithSpecialPermissions(),
		neuron.PrincipalID.Compare,
	)

	absent, removeErr := RemoveNeuronIDPrincipalIDs(idx, id, toRemove)
	present, addErr := AddNeuronIDPrincipalIDs(idx, id, toAdd)

	return combineDefects(
		principalDefect(absent, "absent", id, removeErr),
		principalDefect(present, "present", id, addErr),
	)
}

// diff returns the elements only in a and only in b. Both inputs must be
// sorted by cmp and free of duplicates.
func diff[T any](a, b []T, cmp func(x, y T) int) (onlyOld, onlyNew []T) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch c := cmp(a[i], b[j]); {
		case c < 0:
			onlyOld = append(onlyOld, a[i])
			i++
		case c > 0:
			onlyNew = append(onlyNew, b[j])
			j++
		default:
			i++
			j++
		}
	}
	onlyOld = append(onlyOld, a[i:]...)
	onlyNew = append(onlyNew, b[j:]...)
	return slices.Clip(onlyOld), slices.Clip(onlyNew)
}

// Segment returns the segment backing the index.
func (idx *PrincipalIndex) Segment() segment.Segment { return idx.log.Segment() }
