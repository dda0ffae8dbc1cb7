package index

import (
	"testing"

	"github.com/hupe1980/neuronidx/neuron"
	"github.com/hupe1980/neuronidx/segment"
	"github.com/stretchr/testify/require"
)

func principal(seed string) neuron.PrincipalID {
	return neuron.NewSelfAuthenticatingID([]byte(seed))
}

func sub(b byte) neuron.Subaccount {
	var s neuron.Subaccount
	for i := range s {
		s[i] = b
	}
	return s
}

func pair(topic neuron.Topic, followee neuron.NeuronID) neuron.TopicFolloweePair {
	return neuron.TopicFolloweePair{Topic: topic, Followee: followee}
}

func testNeuron(id neuron.NeuronID, s neuron.Subaccount) *neuron.Neuron {
	return &neuron.Neuron{
		ID:      id.Ptr(),
		Account: append([]byte(nil), s[:]...),
	}
}

func withPrincipals(n *neuron.Neuron, controller neuron.PrincipalID, hotKeys ...neuron.PrincipalID) *neuron.Neuron {
	n.Controller = &controller
	n.HotKeys = hotKeys
	return n
}

func withFollowees(n *neuron.Neuron, topic neuron.Topic, followees ...neuron.NeuronID) *neuron.Neuron {
	if n.Followees == nil {
		n.Followees = make(map[neuron.Topic]neuron.Followees)
	}
	n.Followees[topic] = neuron.Followees{Followees: followees}
	return n
}

func withName(n *neuron.Neuron, name string) *neuron.Neuron {
	n.KnownNeuronData = &neuron.KnownNeuronData{Name: name}
	return n
}

func newSubaccountIndex(t *testing.T, seg segment.Segment) *SubaccountIndex {
	t.Helper()
	idx, err := NewSubaccountIndex(seg)
	require.NoError(t, err)
	return idx
}

func newPrincipalIndex(t *testing.T, seg segment.Segment) *PrincipalIndex {
	t.Helper()
	idx, err := NewPrincipalIndex(seg)
	require.NoError(t, err)
	return idx
}

func newFollowingIndex(t *testing.T, seg segment.Segment) *StableFollowingIndex {
	t.Helper()
	idx, err := NewStableFollowingIndex(seg)
	require.NoError(t, err)
	return idx
}

func newKnownNeuronIndex(t *testing.T, seg segment.Segment) *KnownNeuronIndex {
	t.Helper()
	idx, err := NewKnownNeuronIndex(seg)
	require.NoError(t, err)
	return idx
}
