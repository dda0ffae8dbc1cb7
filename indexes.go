package neuronidx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/neuronidx/index"
	"github.com/hupe1980/neuronidx/neuron"
)

const numIndexes = 4

// Indexes keeps the four secondary indexes of the neuron store consistent
// with the neurons themselves.
//
// Every operation validates its input first and returns a validation error
// without touching any index. Valid operations are applied to the
// subaccount, principal, following and known neuron indexes in that order.
// A defect in one index never stops the others from being attempted; all
// defects are returned together in a *CorruptedNeuronIndexesError.
//
// Indexes is not safe for concurrent use.
type Indexes struct {
	subaccount  *index.SubaccountIndex
	principal   *index.PrincipalIndex
	following   *index.StableFollowingIndex
	knownNeuron *index.KnownNeuronIndex

	logger  *Logger
	metrics MetricsCollector
}

// AddNeuron indexes a neuron that was just created.
func (x *Indexes) AddNeuron(n *neuron.Neuron) error {
	start := time.Now()

	err := validateNeuron(n)
	if err == nil {
		err = x.corrupted(*n.ID, collect(
			x.subaccount.AddNeuron(n),
			x.principal.AddNeuron(n),
			x.following.AddNeuron(n),
			x.knownNeuron.AddNeuron(n),
		))
	}

	x.metrics.RecordAdd(time.Since(start), err)
	x.logger.LogAdd(context.Background(), n, err)
	return err
}

// RemoveNeuron removes every index entry derived from a neuron that is
// being deleted.
func (x *Indexes) RemoveNeuron(n *neuron.Neuron) error {
	start := time.Now()

	err := validateNeuron(n)
	if err == nil {
		err = x.corrupted(*n.ID, collect(
			x.subaccount.RemoveNeuron(n),
			x.principal.RemoveNeuron(n),
			x.following.RemoveNeuron(n),
			x.knownNeuron.RemoveNeuron(n),
		))
	}

	x.metrics.RecordRemove(time.Since(start), err)
	x.logger.LogRemove(context.Background(), n, err)
	return err
}

// UpdateNeuron moves the index entries of a neuron from oldNeuron to
// newNeuron. Only the entries that differ are written. The id and the
// subaccount must not change.
func (x *Indexes) UpdateNeuron(oldNeuron, newNeuron *neuron.Neuron) error {
	start := time.Now()

	err := validateUpdate(oldNeuron, newNeuron)
	if err == nil {
		var defects []index.Defect
		defects = append(defects, x.subaccount.UpdateNeuron(oldNeuron, newNeuron)...)
		defects = append(defects, x.principal.UpdateNeuron(oldNeuron, newNeuron)...)
		defects = append(defects, x.following.UpdateNeuron(oldNeuron, newNeuron)...)
		defects = append(defects, x.knownNeuron.UpdateNeuron(oldNeuron, newNeuron)...)
		err = x.corrupted(*oldNeuron.ID, defects)
	}

	x.metrics.RecordUpdate(time.Since(start), err)
	x.logger.LogUpdate(context.Background(), newNeuron, err)
	return err
}

// collect drops the nil results. Arguments are evaluated left to right, so
// defects keep the fan-out order.
func collect(results ...*index.Defect) []index.Defect {
	var defects []index.Defect
	for _, d := range results {
		if d != nil {
			defects = append(defects, *d)
		}
	}
	return defects
}

func (x *Indexes) corrupted(id neuron.NeuronID, defects []index.Defect) error {
	if len(defects) == 0 {
		return nil
	}
	for _, d := range defects {
		x.metrics.RecordDefect(d.Index)
	}
	return &CorruptedNeuronIndexesError{NeuronID: id, Defects: defects}
}

// NeuronIDBySubaccount looks up the neuron owning sub.
func (x *Indexes) NeuronIDBySubaccount(sub neuron.Subaccount) (neuron.NeuronID, bool) {
	return x.subaccount.GetNeuronIDBySubaccount(sub)
}

// NeuronIDsByPrincipal returns the neurons p controls or is a hot key of.
func (x *Indexes) NeuronIDsByPrincipal(p neuron.PrincipalID) []neuron.NeuronID {
	return x.principal.GetNeuronIDs(p)
}

// Followers returns the neurons following followee on topic.
func (x *Indexes) Followers(topic neuron.Topic, followee neuron.NeuronID) []neuron.NeuronID {
	return x.following.GetFollowers(neuron.TopicFolloweePair{Topic: topic, Followee: followee})
}

// FolloweePairs returns what follower follows, sorted by topic then followee.
func (x *Indexes) FolloweePairs(follower neuron.NeuronID) []neuron.TopicFolloweePair {
	return x.following.GetFolloweePairs(follower)
}

// NeuronIDByKnownName looks up a known neuron by name.
func (x *Indexes) NeuronIDByKnownName(name string) (neuron.NeuronID, bool) {
	return x.knownNeuron.GetNeuronIDByName(name)
}

// KnownNeuronIDs returns the ids of all known neurons.
func (x *Indexes) KnownNeuronIDs() []neuron.NeuronID {
	return x.knownNeuron.ListNeuronIDs()
}

// Subaccount exposes the subaccount index for read-only use.
func (x *Indexes) Subaccount() *index.SubaccountIndex { return x.subaccount }

// Principal exposes the principal index for read-only use.
func (x *Indexes) Principal() *index.PrincipalIndex { return x.principal }

// Following exposes the following index for read-only use.
func (x *Indexes) Following() *index.StableFollowingIndex { return x.following }

// KnownNeuron exposes the known neuron index for read-only use.
func (x *Indexes) KnownNeuron() *index.KnownNeuronIndex { return x.knownNeuron }

// Compact rewrites every index segment so it holds only live entries.
// Queries are unaffected. All indexes are attempted even if one fails.
func (x *Indexes) Compact() error {
	var errs []error
	if err := x.subaccount.Compact(); err != nil {
		errs = append(errs, fmt.Errorf("compact subaccount index: %w", err))
	}
	if err := x.principal.Compact(); err != nil {
		errs = append(errs, fmt.Errorf("compact principal index: %w", err))
	}
	if err := x.following.Compact(); err != nil {
		errs = append(errs, fmt.Errorf("compact following index: %w", err))
	}
	if err := x.knownNeuron.Compact(); err != nil {
		errs = append(errs, fmt.Errorf("compact known neuron index: %w", err))
	}
	return errors.Join(errs...)
}
