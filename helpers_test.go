package neuronidx_test

import (
	"slices"
	"testing"

	"github.com/hupe1980/neuronidx"
	"github.com/hupe1980/neuronidx/neuron"
	"github.com/hupe1980/neuronidx/segment"
	"github.com/hupe1980/neuronidx/testutil"
	"github.com/stretchr/testify/require"
)

const (
	topicX = neuron.TopicGovernance
	maxID  = 40
)

func sub(b byte) []byte {
	account := make([]byte, neuron.SubaccountSize)
	for i := range account {
		account[i] = b
	}
	return account
}

func mustSub(t *testing.T, account []byte) neuron.Subaccount {
	t.Helper()
	s, err := neuron.SubaccountFromBytes(account)
	require.NoError(t, err)
	return s
}

func newNeuron(id neuron.NeuronID, account []byte, controller neuron.PrincipalID, hotKeys ...neuron.PrincipalID) *neuron.Neuron {
	return &neuron.Neuron{
		ID:         id.Ptr(),
		Account:    account,
		Controller: &controller,
		HotKeys:    hotKeys,
	}
}

func follow(n *neuron.Neuron, topic neuron.Topic, followees ...neuron.NeuronID) *neuron.Neuron {
	if n.Followees == nil {
		n.Followees = make(map[neuron.Topic]neuron.Followees)
	}
	n.Followees[topic] = neuron.Followees{Followees: followees}
	return n
}

func named(n *neuron.Neuron, name string) *neuron.Neuron {
	n.KnownNeuronData = &neuron.KnownNeuronData{Name: name}
	return n
}

// countingSegments wraps fresh memory segments so tests can count writes.
type countingSegments struct {
	Subaccount, Principal, Following, KnownNeuron *segment.Counting
}

func newCountingIndexes(t *testing.T, opts ...neuronidx.Option) (*neuronidx.Indexes, *countingSegments) {
	t.Helper()
	c := &countingSegments{
		Subaccount:  segment.NewCounting(segment.NewMemory()),
		Principal:   segment.NewCounting(segment.NewMemory()),
		Following:   segment.NewCounting(segment.NewMemory()),
		KnownNeuron: segment.NewCounting(segment.NewMemory()),
	}
	x, err := neuronidx.Builder{
		Subaccount:  c.Subaccount,
		Principal:   c.Principal,
		Following:   c.Following,
		KnownNeuron: c.KnownNeuron,
	}.Build(opts...)
	require.NoError(t, err)
	c.Reset()
	return x, c
}

func (c *countingSegments) Reset() {
	c.Subaccount.Reset()
	c.Principal.Reset()
	c.Following.Reset()
	c.KnownNeuron.Reset()
}

func (c *countingSegments) Writes() int64 {
	return c.Subaccount.Writes() + c.Principal.Writes() + c.Following.Writes() + c.KnownNeuron.Writes()
}

// snapshot captures every query answer over the id, principal and
// followee ranges the tests generate neurons from.
type snapshot struct {
	Subaccounts map[neuron.NeuronID]neuron.NeuronID
	Principals  map[int][]neuron.NeuronID
	Followers   map[neuron.TopicFolloweePair][]neuron.NeuronID
	Followees   map[neuron.NeuronID][]neuron.TopicFolloweePair
	Names       map[string]neuron.NeuronID
	Known       []neuron.NeuronID
}

func takeSnapshot(t *testing.T, x *neuronidx.Indexes, cfg testutil.NeuronConfig) snapshot {
	t.Helper()
	s := snapshot{
		Subaccounts: make(map[neuron.NeuronID]neuron.NeuronID),
		Principals:  make(map[int][]neuron.NeuronID),
		Followers:   make(map[neuron.TopicFolloweePair][]neuron.NeuronID),
		Followees:   make(map[neuron.NeuronID][]neuron.TopicFolloweePair),
		Names:       make(map[string]neuron.NeuronID),
	}

	for id := neuron.NeuronID(0); id <= maxID; id++ {
		if owner, ok := x.NeuronIDBySubaccount(mustSub(t, testutil.Subaccount(id))); ok {
			s.Subaccounts[id] = owner
		}
		if pairs := x.FolloweePairs(id); len(pairs) > 0 {
			s.Followees[id] = pairs
		}
		if owner, ok := x.NeuronIDByKnownName(testutil.KnownName(id)); ok {
			s.Names[testutil.KnownName(id)] = owner
		}
	}
	for i := range cfg.Principals {
		if ids := x.NeuronIDsByPrincipal(testutil.Principal(i)); len(ids) > 0 {
			s.Principals[i] = ids
		}
	}
	for topic := neuron.TopicUnspecified; topic <= neuron.TopicServiceNervousSystemManagement; topic++ {
		for followee := range neuron.NeuronID(cfg.Followees) {
			if ids := x.Followers(topic, followee); len(ids) > 0 {
				s.Followers[neuron.TopicFolloweePair{Topic: topic, Followee: followee}] = ids
			}
		}
	}
	if ids := x.KnownNeuronIDs(); len(ids) > 0 {
		s.Known = ids
	}
	return s
}

// indexesOf builds fresh indexes holding exactly neurons.
func indexesOf(t *testing.T, neurons map[neuron.NeuronID]*neuron.Neuron) *neuronidx.Indexes {
	t.Helper()
	x := neuronidx.NewHeapBased()
	ids := make([]neuron.NeuronID, 0, len(neurons))
	for id := range neurons {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		require.NoError(t, x.AddNeuron(neurons[id]))
	}
	return x
}

// populate adds count random neurons with ids 1..count.
func populate(t *testing.T, x *neuronidx.Indexes, rng *testutil.RNG, count int) map[neuron.NeuronID]*neuron.Neuron {
	t.Helper()
	cfg := testutil.DefaultNeuronConfig()
	neurons := make(map[neuron.NeuronID]*neuron.Neuron, count)
	for i := 1; i <= count; i++ {
		id := neuron.NeuronID(i)
		n := rng.Neuron(id, cfg)
		require.NoError(t, x.AddNeuron(n))
		neurons[id] = n
	}
	return neurons
}
