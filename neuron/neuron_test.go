package neuron

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubaccount(t *testing.T) {
	n := &Neuron{Account: bytes.Repeat([]byte{7}, SubaccountSize)}
	s, err := n.Subaccount()
	require.NoError(t, err)
	assert.Equal(t, byte(7), s[31])

	for _, size := range []int{0, 31, 33} {
		n := &Neuron{Account: make([]byte, size)}
		_, err := n.Subaccount()
		assert.ErrorIs(t, err, ErrInvalidSubaccount, "size %d", size)
	}
}

func TestPrincipalIDsWithSpecialPermissions(t *testing.T) {
	p1 := NewSelfAuthenticatingID([]byte("p1"))
	p2 := NewSelfAuthenticatingID([]byte("p2"))
	p3 := NewSelfAuthenticatingID([]byte("p3"))

	n := &Neuron{Controller: &p2, HotKeys: []PrincipalID{p3, p1, p2, p3}}
	got := n.PrincipalIDsWithSpecialPermissions()

	assert.Len(t, got, 3)
	assert.ElementsMatch(t, []PrincipalID{p1, p2, p3}, got)
	for i := 1; i < len(got); i++ {
		assert.Negative(t, got[i-1].Compare(got[i]))
	}

	assert.Empty(t, (&Neuron{}).PrincipalIDsWithSpecialPermissions())
}

func TestTopicFolloweePairs(t *testing.T) {
	n := &Neuron{Followees: map[Topic]Followees{
		TopicGovernance:   {Followees: []NeuronID{9, 3, 3}},
		TopicExchangeRate: {Followees: []NeuronID{5}},
		TopicKyc:          {},
	}}

	assert.Equal(t, []TopicFolloweePair{
		{Topic: TopicExchangeRate, Followee: 5},
		{Topic: TopicGovernance, Followee: 3},
		{Topic: TopicGovernance, Followee: 9},
	}, n.TopicFolloweePairs())
}

func TestPrincipalTextRoundTrip(t *testing.T) {
	cases := []PrincipalID{
		{},
		MustPrincipalIDFromBytes([]byte{0x04}),
		NewSelfAuthenticatingID([]byte("controller")),
	}
	for _, p := range cases {
		text := p.String()
		parsed, err := ParsePrincipalID(text)
		require.NoError(t, err, text)
		assert.Equal(t, p, parsed)
	}

	// The anonymous principal has a well-known textual form.
	assert.Equal(t, "2vxsx-fae", MustPrincipalIDFromBytes([]byte{0x04}).String())
}

func TestParsePrincipalIDRejectsBadInput(t *testing.T) {
	_, err := ParsePrincipalID("not-a-principal!")
	assert.ErrorIs(t, err, ErrInvalidPrincipalText)

	_, err = ParsePrincipalID("2vxsx-fab")
	assert.ErrorIs(t, err, ErrInvalidPrincipalText)

	_, err = PrincipalIDFromBytes(make([]byte, MaxPrincipalIDLength+1))
	assert.ErrorIs(t, err, ErrPrincipalIDTooLong)
}

func TestCloneIsDeep(t *testing.T) {
	c := NewSelfAuthenticatingID([]byte("c"))
	n := &Neuron{
		ID:              NeuronID(1).Ptr(),
		Account:         make([]byte, SubaccountSize),
		Controller:      &c,
		Followees:       map[Topic]Followees{TopicGovernance: {Followees: []NeuronID{2}}},
		KnownNeuronData: &KnownNeuronData{Name: "alpha"},
	}
	clone := n.Clone()
	require.Equal(t, n, clone)

	*clone.ID = 2
	clone.Account[0] = 1
	clone.Followees[TopicGovernance].Followees[0] = 3
	clone.KnownNeuronData.Name = "beta"

	assert.Equal(t, NeuronID(1), *n.ID)
	assert.Equal(t, byte(0), n.Account[0])
	assert.Equal(t, NeuronID(2), n.Followees[TopicGovernance].Followees[0])
	assert.Equal(t, "alpha", n.KnownNeuronData.Name)
}
