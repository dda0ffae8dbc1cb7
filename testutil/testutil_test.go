package testutil

import (
	"testing"

	"github.com/hupe1980/neuronidx/neuron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeuronIsValid(t *testing.T) {
	rng := NewRNG(4711)
	cfg := DefaultNeuronConfig()

	for i := range 50 {
		n := rng.Neuron(neuron.NeuronID(i), cfg)

		require.NotNil(t, n.ID)
		assert.Equal(t, neuron.NeuronID(i), *n.ID)
		_, err := n.Subaccount()
		require.NoError(t, err)
		assert.NotEmpty(t, n.PrincipalIDsWithSpecialPermissions())

		if name, ok := n.KnownNeuronName(); ok {
			assert.Equal(t, KnownName(neuron.NeuronID(i)), name)
		}
	}
}

func TestMutateKeepsIdentity(t *testing.T) {
	rng := NewRNG(4711)
	cfg := DefaultNeuronConfig()

	n := rng.Neuron(7, cfg)
	m := rng.Mutate(n, cfg)

	assert.Equal(t, *n.ID, *m.ID)
	assert.Equal(t, n.Account, m.Account)

	m.Account[0] ^= 0xff
	assert.NotEqual(t, n.Account, m.Account, "mutate must not alias the input")
}

func TestDeterministic(t *testing.T) {
	cfg := DefaultNeuronConfig()

	a := NewRNG(1).Neuron(3, cfg)
	b := NewRNG(1).Neuron(3, cfg)
	assert.Equal(t, a, b)

	rng := NewRNG(1)
	first := rng.Uint64()
	rng.Reset()
	assert.Equal(t, first, rng.Uint64())
	assert.Equal(t, int64(1), rng.Seed())
}

func TestSubaccountUnique(t *testing.T) {
	assert.NotEqual(t, Subaccount(1), Subaccount(2))
	assert.Len(t, Subaccount(1), neuron.SubaccountSize)
}

func TestZipf(t *testing.T) {
	rng := NewRNG(4711)

	counts := make([]int, 10)
	for range 2000 {
		v := rng.Zipf(10, 1.5)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 10)
		counts[v]++
	}
	assert.Greater(t, counts[0], counts[9])
	assert.Equal(t, 0, rng.Zipf(1, 1.5))
	assert.Less(t, rng.Intn(5), 5)
}
