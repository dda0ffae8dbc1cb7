package neuronidx

import (
	"bytes"

	"github.com/hupe1980/neuronidx/neuron"
)

// validateNeuron checks what every index assumes: the neuron has an id and
// its account is a valid subaccount.
func validateNeuron(n *neuron.Neuron) error {
	if n == nil {
		return ErrNilNeuron
	}
	if n.ID == nil {
		return ErrNeuronIDIsNone
	}
	if _, err := n.Subaccount(); err != nil {
		return &InvalidSubaccountError{
			NeuronID: *n.ID,
			Account:  bytes.Clone(n.Account),
			cause:    err,
		}
	}
	return nil
}

// validateUpdate additionally rejects updates that change the id or the
// subaccount. Both are immutable for the life of a neuron.
func validateUpdate(oldNeuron, newNeuron *neuron.Neuron) error {
	if err := validateNeuron(oldNeuron); err != nil {
		return err
	}
	if err := validateNeuron(newNeuron); err != nil {
		return err
	}

	if *oldNeuron.ID != *newNeuron.ID {
		return &NeuronIDModifiedError{OldNeuronID: *oldNeuron.ID, NewNeuronID: *newNeuron.ID}
	}

	oldSubaccount, _ := oldNeuron.Subaccount()
	newSubaccount, _ := newNeuron.Subaccount()
	if oldSubaccount != newSubaccount {
		return &SubaccountModifiedError{
			NeuronID:      *oldNeuron.ID,
			OldSubaccount: oldSubaccount,
			NewSubaccount: newSubaccount,
		}
	}
	return nil
}
