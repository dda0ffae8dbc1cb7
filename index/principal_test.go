package index

import (
	"testing"

	"github.com/hupe1980/neuronidx/neuron"
	"github.com/hupe1980/neuronidx/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalIndex(t *testing.T) {
	seg := segment.NewMemory()
	idx := newPrincipalIndex(t, seg)
	p1, p2 := principal("p1"), principal("p2")

	added, err := idx.AddNeuronIDPrincipalID(1, p1)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = idx.AddNeuronIDPrincipalID(1, p1)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = idx.AddNeuronIDPrincipalID(3, p1)
	require.NoError(t, err)
	_, err = idx.AddNeuronIDPrincipalID(2, p1)
	require.NoError(t, err)
	_, err = idx.AddNeuronIDPrincipalID(2, p2)
	require.NoError(t, err)

	assert.Equal(t, []neuron.NeuronID{1, 2, 3}, idx.GetNeuronIDs(p1))
	assert.Equal(t, []neuron.NeuronID{2}, idx.GetNeuronIDs(p2))
	assert.Empty(t, idx.GetNeuronIDs(principal("nobody")))
	assert.Equal(t, 4, idx.Len())

	removed, err := idx.RemoveNeuronIDPrincipalID(2, p2)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = idx.RemoveNeuronIDPrincipalID(2, p2)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, idx.GetNeuronIDs(p2))

	reopened := newPrincipalIndex(t, seg)
	assert.Equal(t, []neuron.NeuronID{1, 2, 3}, reopened.GetNeuronIDs(p1))
	assert.Empty(t, reopened.GetNeuronIDs(p2))
	assert.Equal(t, 3, reopened.Len())
}

func TestPrincipalIndexBatch(t *testing.T) {
	idx := newPrincipalIndex(t, segment.NewMemory())
	p1, p2, p3 := principal("p1"), principal("p2"), principal("p3")

	present, err := AddNeuronIDPrincipalIDs(idx, 1, []neuron.PrincipalID{p1, p2})
	require.NoError(t, err)
	assert.Empty(t, present)

	present, err = AddNeuronIDPrincipalIDs(idx, 1, []neuron.PrincipalID{p2, p3})
	require.NoError(t, err)
	assert.Equal(t, []neuron.PrincipalID{p2}, present)
	assert.Equal(t, []neuron.NeuronID{1}, idx.GetNeuronIDs(p3))

	absent, err := RemoveNeuronIDPrincipalIDs(idx, 1, []neuron.PrincipalID{p1, principal("p4")})
	require.NoError(t, err)
	assert.Equal(t, []neuron.PrincipalID{principal("p4")}, absent)
	assert.Equal(t, 2, idx.Len())
}

func TestPrincipalIndexNeuronIndex(t *testing.T) {
	idx := newPrincipalIndex(t, segment.NewMemory())
	p1, p2 := principal("p1"), principal("p2")
	n := withPrincipals(testNeuron(1, sub(1)), p1, p2)

	assert.Nil(t, idx.AddNeuron(n))
	assert.Equal(t, []neuron.NeuronID{1}, idx.GetNeuronIDs(p1))
	assert.Equal(t, []neuron.NeuronID{1}, idx.GetNeuronIDs(p2))

	defect := idx.AddNeuron(n)
	require.NotNil(t, defect)
	assert.Equal(t, KindPrincipal, defect.Index)
	assert.Contains(t, defect.Reason, "already present for neuron 1")
	assert.Contains(t, defect.String(), "Neuron principal index is corrupted: Principals [")
	assert.Equal(t, 2, idx.Len())

	assert.Nil(t, idx.RemoveNeuron(n))
	assert.Zero(t, idx.Len())

	defect = idx.RemoveNeuron(n)
	require.NotNil(t, defect)
	assert.Contains(t, defect.Reason, "already absent for neuron 1")
}

func TestPrincipalIndexControllerAlsoHotKey(t *testing.T) {
	idx := newPrincipalIndex(t, segment.NewMemory())
	p1 := principal("p1")
	n := withPrincipals(testNeuron(1, sub(1)), p1, p1)

	assert.Nil(t, idx.AddNeuron(n))
	assert.Equal(t, 1, idx.Len())
	assert.Nil(t, idx.RemoveNeuron(n))
	assert.Zero(t, idx.Len())
}

func TestPrincipalIndexUpdateWritesOnlyDifference(t *testing.T) {
	seg := segment.NewCounting(segment.NewMemory())
	idx := newPrincipalIndex(t, seg)
	p1, p2, p3 := principal("p1"), principal("p2"), principal("p3")

	oldNeuron := withPrincipals(testNeuron(1, sub(1)), p1, p2)
	require.Nil(t, idx.AddNeuron(oldNeuron))

	newNeuron := withPrincipals(testNeuron(1, sub(1)), p2, p3)

	seg.Reset()
	assert.Empty(t, idx.UpdateNeuron(oldNeuron, newNeuron))
	// One removal and one insertion, each a record plus a header commit.
	assert.Equal(t, int64(4), seg.Writes())

	assert.Empty(t, idx.GetNeuronIDs(p1))
	assert.Equal(t, []neuron.NeuronID{1}, idx.GetNeuronIDs(p2))
	assert.Equal(t, []neuron.NeuronID{1}, idx.GetNeuronIDs(p3))

	seg.Reset()
	assert.Empty(t, idx.UpdateNeuron(newNeuron, newNeuron.Clone()))
	assert.Zero(t, seg.Writes())
}

func TestPrincipalIndexUpdateReportsBothHalves(t *testing.T) {
	idx := newPrincipalIndex(t, segment.NewMemory())
	p1, p2, p3 := principal("p1"), principal("p2"), principal("p3")

	// p1 is missing from the index and p3 is already there.
	_, err := idx.AddNeuronIDPrincipalID(1, p3)
	require.NoError(t, err)

	oldNeuron := withPrincipals(testNeuron(1, sub(1)), p1, p2)
	newNeuron := withPrincipals(testNeuron(1, sub(1)), p2, p3)

	defects := idx.UpdateNeuron(oldNeuron, newNeuron)
	require.Len(t, defects, 2)
	assert.Contains(t, defects[0].Reason, "already absent")
	assert.Contains(t, defects[1].Reason, "already present")
	assert.Equal(t, []neuron.NeuronID{1}, idx.GetNeuronIDs(p3))
}

func TestPrincipalIndexStorageFailure(t *testing.T) {
	seg := segment.NewFaulty(segment.NewMemory())
	idx := newPrincipalIndex(t, seg)
	p1, p2 := principal("p1"), principal("p2")
	n := withPrincipals(testNeuron(1, sub(1)), p1, p2)

	// The first pair commits; every write after that fails.
	seg.SetFault(segment.Fault{FailAfterWrites: 2})
	defect := idx.AddNeuron(n)
	require.NotNil(t, defect)
	assert.Contains(t, defect.Reason, "storage failure for neuron 1")
	assert.Equal(t, 1, idx.Len())

	seg.Heal()
	defect = idx.AddNeuron(n)
	require.NotNil(t, defect)
	assert.Contains(t, defect.Reason, "already present")
	assert.Equal(t, 2, idx.Len())

	reopened := newPrincipalIndex(t, seg)
	assert.Equal(t, 2, reopened.Len())
}

func TestDiff(t *testing.T) {
	cmp := func(a, b int) int { return a - b }

	onlyOld, onlyNew := diff([]int{1, 2, 4, 6}, []int{2, 3, 6, 7}, cmp)
	assert.Equal(t, []int{1, 4}, onlyOld)
	assert.Equal(t, []int{3, 7}, onlyNew)

	onlyOld, onlyNew = diff(nil, []int{1}, cmp)
	assert.Empty(t, onlyOld)
	assert.Equal(t, []int{1}, onlyNew)

	onlyOld, onlyNew = diff([]int{1, 2}, []int{1, 2}, cmp)
	assert.Empty(t, onlyOld)
	assert.Empty(t, onlyNew)
}
