package index

import (
	"testing"

	"github.com/hupe1980/neuronidx/neuron"
	"github.com/hupe1980/neuronidx/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubaccountIndex(t *testing.T) {
	seg := segment.NewMemory()
	idx := newSubaccountIndex(t, seg)

	require.NoError(t, idx.AddNeuronSubaccount(1, sub(1)))
	require.NoError(t, idx.AddNeuronSubaccount(2, sub(2)))

	id, ok := idx.GetNeuronIDBySubaccount(sub(1))
	assert.True(t, ok)
	assert.Equal(t, neuron.NeuronID(1), id)
	assert.True(t, idx.Contains(sub(2)))
	assert.False(t, idx.Contains(sub(3)))
	assert.Equal(t, 2, idx.Len())

	err := idx.AddNeuronSubaccount(3, sub(1))
	assert.ErrorIs(t, err, ErrSubaccountAlreadyExists)
	id, _ = idx.GetNeuronIDBySubaccount(sub(1))
	assert.Equal(t, neuron.NeuronID(1), id)

	err = idx.RemoveNeuronSubaccount(2, sub(1))
	assert.ErrorIs(t, err, ErrSubaccountDifferentID)
	assert.True(t, idx.Contains(sub(1)))

	require.NoError(t, idx.RemoveNeuronSubaccount(1, sub(1)))
	assert.False(t, idx.Contains(sub(1)))

	err = idx.RemoveNeuronSubaccount(1, sub(1))
	assert.ErrorIs(t, err, ErrSubaccountAlreadyAbsent)

	t.Run("Reopen", func(t *testing.T) {
		reopened := newSubaccountIndex(t, seg)
		assert.Equal(t, 1, reopened.Len())
		id, ok := reopened.GetNeuronIDBySubaccount(sub(2))
		assert.True(t, ok)
		assert.Equal(t, neuron.NeuronID(2), id)
		assert.False(t, reopened.Contains(sub(1)))
	})
}

func TestSubaccountIndexNeuronIndex(t *testing.T) {
	idx := newSubaccountIndex(t, segment.NewMemory())
	n := testNeuron(7, sub(7))

	assert.Nil(t, idx.AddNeuron(n))

	defect := idx.AddNeuron(n)
	require.NotNil(t, defect)
	assert.Equal(t, KindSubaccount, defect.Index)
	assert.Contains(t, defect.String(), "Neuron subaccount index is corrupted: ")
	assert.Equal(t, 1, idx.Len())

	changed := n.Clone()
	changed.HotKeys = []neuron.PrincipalID{principal("hot")}
	assert.Empty(t, idx.UpdateNeuron(n, changed))

	assert.Nil(t, idx.RemoveNeuron(n))
	defect = idx.RemoveNeuron(n)
	require.NotNil(t, defect)
	assert.Equal(t, KindSubaccount, defect.Index)
	assert.Zero(t, idx.Len())
}

func TestSubaccountIndexEntriesAndCompact(t *testing.T) {
	seg := segment.NewMemory()
	idx := newSubaccountIndex(t, seg)

	for i := byte(1); i <= 10; i++ {
		require.NoError(t, idx.AddNeuronSubaccount(neuron.NeuronID(i), sub(i)))
	}
	for i := byte(1); i <= 8; i++ {
		require.NoError(t, idx.RemoveNeuronSubaccount(neuron.NeuronID(i), sub(i)))
	}

	got := map[neuron.Subaccount]neuron.NeuronID{}
	for s, id := range idx.Entries() {
		got[s] = id
	}
	assert.Equal(t, map[neuron.Subaccount]neuron.NeuronID{sub(9): 9, sub(10): 10}, got)

	require.NoError(t, idx.Compact())
	assert.Equal(t, int64(2), idx.log.Len())

	reopened := newSubaccountIndex(t, seg)
	assert.Equal(t, 2, reopened.Len())
	assert.True(t, reopened.Contains(sub(9)))
	assert.True(t, reopened.Contains(sub(10)))
}
