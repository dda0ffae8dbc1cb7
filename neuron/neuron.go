package neuron

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// SubaccountSize is the size of a ledger subaccount in bytes.
const SubaccountSize = 32

// ErrInvalidSubaccount is returned when the account bytes do not form a subaccount.
var ErrInvalidSubaccount = errors.New("invalid subaccount")

// NeuronID is the 64-bit neuron identifier.
type NeuronID uint64

// Ptr returns a pointer to a copy of id, for populating Neuron.ID.
func (id NeuronID) Ptr() *NeuronID { return &id }

func (id NeuronID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Subaccount is the ledger subaccount holding a neuron's stake.
type Subaccount [SubaccountSize]byte

// SubaccountFromBytes validates and copies b.
func SubaccountFromBytes(b []byte) (Subaccount, error) {
	var s Subaccount
	if len(b) != SubaccountSize {
		return s, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSubaccount, SubaccountSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}

func (s Subaccount) String() string { return hex.EncodeToString(s[:]) }

// Topic is a proposal topic neurons can delegate votes on.
type Topic int32

const (
	TopicUnspecified Topic = iota
	TopicNeuronManagement
	TopicExchangeRate
	TopicNetworkEconomics
	TopicGovernance
	TopicNodeAdmin
	TopicParticipantManagement
	TopicSubnetManagement
	TopicNetworkCanisterManagement
	TopicKyc
	TopicNodeProviderRewards
	TopicSnsDecentralizationSale
	TopicIcOsVersionDeployment
	TopicIcOsVersionElection
	TopicSnsAndCommunityFund
	TopicApiBoundaryNodeManagement
	TopicSubnetRental
	TopicProtocolCanisterManagement
	TopicServiceNervousSystemManagement
)

var topicNames = map[Topic]string{
	TopicUnspecified:                    "Unspecified",
	TopicNeuronManagement:               "NeuronManagement",
	TopicExchangeRate:                   "ExchangeRate",
	TopicNetworkEconomics:               "NetworkEconomics",
	TopicGovernance:                     "Governance",
	TopicNodeAdmin:                      "NodeAdmin",
	TopicParticipantManagement:          "ParticipantManagement",
	TopicSubnetManagement:               "SubnetManagement",
	TopicNetworkCanisterManagement:      "NetworkCanisterManagement",
	TopicKyc:                            "Kyc",
	TopicNodeProviderRewards:            "NodeProviderRewards",
	TopicSnsDecentralizationSale:        "SnsDecentralizationSale",
	TopicIcOsVersionDeployment:          "IcOsVersionDeployment",
	TopicIcOsVersionElection:            "IcOsVersionElection",
	TopicSnsAndCommunityFund:            "SnsAndCommunityFund",
	TopicApiBoundaryNodeManagement:      "ApiBoundaryNodeManagement",
	TopicSubnetRental:                   "SubnetRental",
	TopicProtocolCanisterManagement:     "ProtocolCanisterManagement",
	TopicServiceNervousSystemManagement: "ServiceNervousSystemManagement",
}

func (t Topic) String() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return "Topic(" + strconv.Itoa(int(t)) + ")"
}

// Followees lists the neurons followed on one topic.
type Followees struct {
	Followees []NeuronID
}

// KnownNeuronData is the public metadata of a named neuron.
type KnownNeuronData struct {
	Name        string
	Description *string
}

// TopicFolloweePair is one voting delegation.
type TopicFolloweePair struct {
	Topic    Topic
	Followee NeuronID
}

func (p TopicFolloweePair) String() string {
	return "(" + p.Topic.String() + ", " + p.Followee.String() + ")"
}

// Compare orders pairs by topic, then followee.
func (p TopicFolloweePair) Compare(other TopicFolloweePair) int {
	if c := cmp.Compare(p.Topic, other.Topic); c != 0 {
		return c
	}
	return cmp.Compare(p.Followee, other.Followee)
}

// Neuron is the subset of the neuron record the indexes project from.
type Neuron struct {
	// ID is nil when the record has no identifier.
	ID *NeuronID

	// Account holds the subaccount bytes.
	Account []byte

	// Controller is nil for records that have not been assigned one.
	Controller *PrincipalID

	HotKeys []PrincipalID

	// Followees maps a topic to the neurons followed on it.
	Followees map[Topic]Followees

	KnownNeuronData *KnownNeuronData
}

// Subaccount derives the subaccount from Account.
func (n *Neuron) Subaccount() (Subaccount, error) {
	return SubaccountFromBytes(n.Account)
}

// PrincipalIDsWithSpecialPermissions returns the controller and hot keys,
// sorted and without duplicates.
func (n *Neuron) PrincipalIDsWithSpecialPermissions() []PrincipalID {
	principals := make([]PrincipalID, 0, len(n.HotKeys)+1)
	if n.Controller != nil {
		principals = append(principals, *n.Controller)
	}
	principals = append(principals, n.HotKeys...)
	slices.SortFunc(principals, PrincipalID.Compare)
	return slices.Compact(principals)
}

// TopicFolloweePairs returns the delegations, sorted and without duplicates.
func (n *Neuron) TopicFolloweePairs() []TopicFolloweePair {
	var pairs []TopicFolloweePair
	for topic, followees := range n.Followees {
		for _, followee := range followees.Followees {
			pairs = append(pairs, TopicFolloweePair{Topic: topic, Followee: followee})
		}
	}
	slices.SortFunc(pairs, TopicFolloweePair.Compare)
	return slices.Compact(pairs)
}

// KnownNeuronName returns the public name, if the neuron has one.
func (n *Neuron) KnownNeuronName() (string, bool) {
	if n.KnownNeuronData == nil {
		return "", false
	}
	return n.KnownNeuronData.Name, true
}

// Clone returns a deep copy of n.
func (n *Neuron) Clone() *Neuron {
	if n == nil {
		return nil
	}
	out := &Neuron{
		Account: slices.Clone(n.Account),
		HotKeys: slices.Clone(n.HotKeys),
	}
	if n.ID != nil {
		out.ID = n.ID.Ptr()
	}
	if n.Controller != nil {
		c := *n.Controller
		out.Controller = &c
	}
	if n.Followees != nil {
		out.Followees = make(map[Topic]Followees, len(n.Followees))
		for topic, f := range n.Followees {
			out.Followees[topic] = Followees{Followees: slices.Clone(f.Followees)}
		}
	}
	if n.KnownNeuronData != nil {
		data := *n.KnownNeuronData
		if data.Description != nil {
			d := *data.Description
			data.Description = &d
		}
		out.KnownNeuronData = &data
	}
	return out
}

func seedDigest(seed []byte) [sha256.Size224]byte {
	return sha256.Sum224(seed)
}
