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

// FollowingIndex records voting delegations: which neurons follow a given
// (topic, followee) pair, and which pairs a given neuron follows.
type FollowingIndex interface {
	NeuronIndex

	// AddNeuronFollowee records that follower follows pair. It reports false
	// without writing if the entry is already present.
	AddNeuronFollowee(follower neuron.NeuronID, pair neuron.TopicFolloweePair) (bool, error)

	// RemoveNeuronFollowee deletes the entry. It reports false without
	// writing if the entry is already absent.
	RemoveNeuronFollowee(follower neuron.NeuronID, pair neuron.TopicFolloweePair) (bool, error)

	// GetFollowers returns the neurons following pair, ascending.
	GetFollowers(pair neuron.TopicFolloweePair) []neuron.NeuronID

	// GetFolloweePairs returns the pairs follower follows, sorted.
	GetFolloweePairs(follower neuron.NeuronID) []neuron.TopicFolloweePair

	// Len returns the number of (topic, followee, follower) entries.
	Len() int
}

// followingView holds both directions of the following relation in memory.
type followingView struct {
	followers map[neuron.TopicFolloweePair]*roaring64.Bitmap
	followees map[neuron.NeuronID]map[neuron.TopicFolloweePair]struct{}
	entries   int
}

func newFollowingView() followingView {
	return followingView{
		followers: make(map[neuron.TopicFolloweePair]*roaring64.Bitmap),
		followees: make(map[neuron.NeuronID]map[neuron.TopicFolloweePair]struct{}),
	}
}

func (v *followingView) contains(follower neuron.NeuronID, pair neuron.TopicFolloweePair) bool {
	bm, ok := v.followers[pair]
	return ok && bm.Contains(uint64(follower))
}

func (v *followingView) insert(follower neuron.NeuronID, pair neuron.TopicFolloweePair) bool {
	bm, ok := v.followers[pair]
	if !ok {
		bm = roaring64.New()
		v.followers[pair] = bm
	}
	if !bm.CheckedAdd(uint64(follower)) {
		return false
	}
	pairs, ok := v.followees[follower]
	if !ok {
		pairs = make(map[neuron.TopicFolloweePair]struct{})
		v.followees[follower] = pairs
	}
	pairs[pair] = struct{}{}
	v.entries++
	return true
}

func (v *followingView) remove(follower neuron.NeuronID, pair neuron.TopicFolloweePair) bool {
	bm, ok := v.followers[pair]
	if !ok || !bm.CheckedRemove(uint64(follower)) {
		return false
	}
	if bm.IsEmpty() {
		delete(v.followers, pair)
	}
	if pairs, ok := v.followees[follower]; ok {
		delete(pairs, pair)
		if len(pairs) == 0 {
			delete(v.followees, follower)
		}
	}
	v.entries--
	return true
}

func (v *followingView) getFollowers(pair neuron.TopicFolloweePair) []neuron.NeuronID {
	bm, ok := v.followers[pair]
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

func (v *followingView) getFolloweePairs(follower neuron.NeuronID) []neuron.TopicFolloweePair {
	pairs, ok := v.followees[follower]
	if !ok {
		return nil
	}
	out := make([]neuron.TopicFolloweePair, 0, len(pairs))
	for pair := range pairs {
		out = append(out, pair)
	}
	slices.SortFunc(out, neuron.TopicFolloweePair.Compare)
	return out
}

// StableFollowingIndex is a FollowingIndex persisted in a segment. Only the
// forward (topic, followee, follower) entries are stored; the reverse view
// is rebuilt when the segment is opened.
type StableFollowingIndex struct {
	followingView
	log *stablelog.Log
}

// NewStableFollowingIndex opens the index stored in seg.
func NewStableFollowingIndex(seg segment.Segment) (*StableFollowingIndex, error) {
	idx := &StableFollowingIndex{followingView: newFollowingView()}

	log, err := stablelog.Open(seg, idx.replay)
	if err != nil {
		return nil, fmt.Errorf("open following index: %w", err)
	}
	idx.log = log
	return idx, nil
}

func (idx *StableFollowingIndex) replay(rec stablelog.Record) error {
	pair, follower, err := decodeFollowingKey(rec.Key)
	if err != nil {
		return err
	}
	switch rec.Type {
	case stablelog.RecordTypePut:
		idx.insert(follower, pair)
	case stablelog.RecordTypeDelete:
		idx.remove(follower, pair)
	}
	return nil
}

// AddNeuronFollowee implements FollowingIndex.
func (idx *StableFollowingIndex) AddNeuronFollowee(follower neuron.NeuronID, pair neuron.TopicFolloweePair) (bool, error) {
	if idx.contains(follower, pair) {
		return false, nil
	}
	if err := idx.log.Put(followingKey(pair, follower), nil); err != nil {
		return false, err
	}
	return idx.insert(follower, pair), nil
}

// RemoveNeuronFollowee implements FollowingIndex.
func (idx *StableFollowingIndex) RemoveNeuronFollowee(follower neuron.NeuronID, pair neuron.TopicFolloweePair) (bool, error) {
	if !idx.contains(follower, pair) {
		return false, nil
	}
	if err := idx.log.Delete(followingKey(pair, follower)); err != nil {
		return false, err
	}
	return idx.remove(follower, pair), nil
}

// GetFollowers implements FollowingIndex.
func (idx *StableFollowingIndex) GetFollowers(pair neuron.TopicFolloweePair) []neuron.NeuronID {
	return idx.getFollowers(pair)
}

// GetFolloweePairs implements FollowingIndex.
func (idx *StableFollowingIndex) GetFolloweePairs(follower neuron.NeuronID) []neuron.TopicFolloweePair {
	return idx.getFolloweePairs(follower)
}

// Len implements FollowingIndex.
func (idx *StableFollowingIndex) Len() int { return idx.entries }

// Compact rewrites the backing log with only the live entries.
func (idx *StableFollowingIndex) Compact() error {
	return idx.log.Rewrite(func(yield func(stablelog.Record) bool) {
		for pair, bm := range idx.followers {
			it := bm.Iterator()
			for it.HasNext() {
				key := followingKey(pair, neuron.NeuronID(it.Next()))
				if !yield(stablelog.Record{Type: stablelog.RecordTypePut, Key: key}) {
					return
				}
			}
		}
	})
}

// AddNeuron implements NeuronIndex.
func (idx *StableFollowingIndex) AddNeuron(n *neuron.Neuron) *Defect {
	return followingAddNeuron(idx, n)
}

// RemoveNeuron implements NeuronIndex.
func (idx *StableFollowingIndex) RemoveNeuron(n *neuron.Neuron) *Defect {
	return followingRemoveNeuron(idx, n)
}

// UpdateNeuron implements NeuronIndex.
func (idx *StableFollowingIndex) UpdateNeuron(oldNeuron, newNeuron *neuron.Neuron) []Defect {
	return followingUpdateNeuron(idx, oldNeuron, newNeuron)
}

// HeapFollowingIndex is a FollowingIndex held only in memory.
type HeapFollowingIndex struct {
	followingView
}

// NewHeapFollowingIndex returns an empty in-memory following index.
func NewHeapFollowingIndex() *HeapFollowingIndex {
	return &HeapFollowingIndex{followingView: newFollowingView()}
}

// AddNeuronFollowee implements FollowingIndex.
func (idx *HeapFollowingIndex) AddNeuronFollowee(follower neuron.NeuronID, pair neuron.TopicFolloweePair) (bool, error) {
	return idx.insert(follower, pair), nil
}

// RemoveNeuronFollowee implements FollowingIndex.
func (idx *HeapFollowingIndex) RemoveNeuronFollowee(follower neuron.NeuronID, pair neuron.TopicFolloweePair) (bool, error) {
	return idx.remove(follower, pair), nil
}

// GetFollowers implements FollowingIndex.
func (idx *HeapFollowingIndex) GetFollowers(pair neuron.TopicFolloweePair) []neuron.NeuronID {
	return idx.getFollowers(pair)
}

// GetFolloweePairs implements FollowingIndex.
func (idx *HeapFollowingIndex) GetFolloweePairs(follower neuron.NeuronID) []neuron.TopicFolloweePair {
	return idx.getFolloweePairs(follower)
}

// Len implements FollowingIndex.
func (idx *HeapFollowingIndex) Len() int { return idx.entries }

// AddNeuron implements NeuronIndex.
func (idx *HeapFollowingIndex) AddNeuron(n *neuron.Neuron) *Defect {
	return followingAddNeuron(idx, n)
}

// RemoveNeuron implements NeuronIndex.
func (idx *HeapFollowingIndex) RemoveNeuron(n *neuron.Neuron) *Defect {
	return followingRemoveNeuron(idx, n)
}

// UpdateNeuron implements NeuronIndex.
func (idx *HeapFollowingIndex) UpdateNeuron(oldNeuron, newNeuron *neuron.Neuron) []Defect {
	return followingUpdateNeuron(idx, oldNeuron, newNeuron)
}

// AddNeuronFollowees adds every pair for follower and returns the pairs that
// were already present. Storage failures are joined into err; the remaining
// pairs are still attempted.
func AddNeuronFollowees(idx FollowingIndex, follower neuron.NeuronID, pairs []neuron.TopicFolloweePair) (alreadyPresent []neuron.TopicFolloweePair, err error) {
	var errs []error
	for _, pair := range pairs {
		added, addErr := idx.AddNeuronFollowee(follower, pair)
		switch {
		case addErr != nil:
			errs = append(errs, fmt.Errorf("pair %s: %w", pair, addErr))
		case !added:
			alreadyPresent = append(alreadyPresent, pair)
		}
	}
	return alreadyPresent, errors.Join(errs...)
}

// RemoveNeuronFollowees removes every pair for follower and returns the
// pairs that were already absent.
func RemoveNeuronFollowees(idx FollowingIndex, follower neuron.NeuronID, pairs []neuron.TopicFolloweePair) (alreadyAbsent []neuron.TopicFolloweePair, err error) {
	var errs []error
	for _, pair := range pairs {
		removed, removeErr := idx.RemoveNeuronFollowee(follower, pair)
		switch {
		case removeErr != nil:
			errs = append(errs, fmt.Errorf("pair %s: %w", pair, removeErr))
		case !removed:
			alreadyAbsent = append(alreadyAbsent, pair)
		}
	}
	return alreadyAbsent, errors.Join(errs...)
}

func followingDefect(pairs []neuron.TopicFolloweePair, state string, id neuron.NeuronID, err error) *Defect {
	var reason string
	if len(pairs) > 0 {
		verb := "already absent"
		if state == "present" {
			verb = "already exists"
		}
		reason = fmt.Sprintf("Topic-followee pairs %v %s for neuron %d", pairs, verb, id)
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
	return &Defect{Index: KindFollowing, Reason: reason}
}

func followingAddNeuron(idx FollowingIndex, n *neuron.Neuron) *Defect {
	id := neuronID(n)
	present, err := AddNeuronFollowees(idx, id, n.TopicFolloweePairs())
	return followingDefect(present, "present", id, err)
}

func followingRemoveNeuron(idx FollowingIndex, n *neuron.Neuron) *Defect {
	id := neuronID(n)
	absent, err := RemoveNeuronFollowees(idx, id, n.TopicFolloweePairs())
	return followingDefect(absent, "absent", id, err)
}

// followingUpdateNeuron writes only the pairs that differ between the two
// versions.
func followingUpdateNeuron(idx FollowingIndex, oldNeuron, newNeuron *neuron.Neuron) []Defect {
	id := neuronID(oldNeuron)
	toRemove, toAdd := diff(
		oldNeuron.TopicFolloweePairs(),
		newNeuron.TopicFolloweePairs(),
		neuron.TopicFolloweePair.Compare,
	)

	absent, removeErr := RemoveNeuronFollowees(idx, id, toRemove)
	present, addErr := AddNeuronFollowees(idx, id, toAdd)

	return combineDefects(
		followingDefect(absent, "absent", id, removeErr),
		followingDefect(present, "present", id, addErr),
	)
}

// Segment returns the segment backing the index.
func (idx *StableFollowingIndex) Segment() segment.Segment { return idx.log.Segment() }
