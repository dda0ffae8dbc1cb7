package index

import (
	"fmt"

	"github.com/hupe1980/neuronidx/neuron"
)

// Kind identifies which index produced a defect.
type Kind uint8

const (
	KindSubaccount Kind = iota + 1
	KindPrincipal
	KindFollowing
	KindKnownNeuron
)

func (k Kind) String() string {
	switch k {
	case KindSubaccount:
		return "subaccount"
	case KindPrincipal:
		return "principal"
	case KindFollowing:
		return "following"
	case KindKnownNeuron:
		return "known_neuron"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Defect is a local inconsistency detected by one index. It is recorded,
// never corrected.
type Defect struct {
	Index  Kind
	Reason string
}

func (d Defect) String() string {
	switch d.Index {
	case KindSubaccount:
		return "Neuron subaccount index is corrupted: " + d.Reason
	case KindPrincipal:
		return "Neuron principal index is corrupted: " + d.Reason
	case KindFollowing:
		return "Neuron following index is corrupted: " + d.Reason
	case KindKnownNeuron:
		return "Known neuron index is corrupted: " + d.Reason
	default:
		return d.Index.String() + " index is corrupted: " + d.Reason
	}
}

// NeuronIndex is the capability shared by all neuron indexes.
//
// Implementations assume the caller has validated that every neuron has an
// id and a valid subaccount, and that both neurons passed to UpdateNeuron
// share them.
type NeuronIndex interface {
	// AddNeuron inserts the entries implied by n. Adding the same neuron a
	// second time leaves the index unchanged and returns a defect.
	AddNeuron(n *neuron.Neuron) *Defect

	// RemoveNeuron deletes the entries implied by n. Removing the same
	// neuron a second time leaves the index unchanged and returns a defect.
	RemoveNeuron(n *neuron.Neuron) *Defect

	// UpdateNeuron moves the entries from the shape of oldNeuron to the
	// shape of newNeuron. It returns up to two defects, the removal half
	// first. A defect in one half never stops the other.
	UpdateNeuron(oldNeuron, newNeuron *neuron.Neuron) []Defect
}

// combineDefects collects the non-nil defects in order.
func combineDefects(defects ...*Defect) []Defect {
	var out []Defect
	for _, d := range defects {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

func neuronID(n *neuron.Neuron) neuron.NeuronID {
	if n.ID == nil {
		panic("neuron must have an id")
	}
	return *n.ID
}

func subaccount(n *neuron.Neuron) neuron.Subaccount {
	s, err := n.Subaccount()
	if err != nil {
		panic("neuron must have a valid subaccount: " + err.Error())
	}
	return s
}
