package neuronidx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/neuronidx/index"
	"github.com/hupe1980/neuronidx/neuron"
)

var (
	// ErrInvalidNeuron is matched by every validation error. Validation
	// errors are returned before any index is touched.
	ErrInvalidNeuron = errors.New("invalid neuron")

	// ErrNeuronIDIsNone is returned for a neuron without an id.
	ErrNeuronIDIsNone = fmt.Errorf("%w: neuron id is none", ErrInvalidNeuron)

	// ErrNilNeuron is returned when a nil *neuron.Neuron is passed.
	ErrNilNeuron = fmt.Errorf("%w: neuron is nil", ErrInvalidNeuron)
)

// InvalidSubaccountError indicates that the account bytes of a neuron do
// not form a subaccount.
//
// It matches both ErrInvalidNeuron and the decoding error via errors.Is.
type InvalidSubaccountError struct {
	NeuronID neuron.NeuronID
	Account  []byte
	cause    error
}

func (e *InvalidSubaccountError) Error() string {
	return fmt.Sprintf("neuron %d has an invalid subaccount %x: %v", e.NeuronID, e.Account, e.cause)
}

func (e *InvalidSubaccountError) Unwrap() []error { return []error{ErrInvalidNeuron, e.cause} }

// NeuronIDModifiedError indicates an update that changes the neuron id.
type NeuronIDModifiedError struct {
	OldNeuronID neuron.NeuronID
	NewNeuronID neuron.NeuronID
}

func (e *NeuronIDModifiedError) Error() string {
	return fmt.Sprintf("neuron id modified from %d to %d", e.OldNeuronID, e.NewNeuronID)
}

func (e *NeuronIDModifiedError) Unwrap() error { return ErrInvalidNeuron }

// SubaccountModifiedError indicates an update that changes the subaccount.
type SubaccountModifiedError struct {
	NeuronID      neuron.NeuronID
	OldSubaccount neuron.Subaccount
	NewSubaccount neuron.Subaccount
}

func (e *SubaccountModifiedError) Error() string {
	return fmt.Sprintf("subaccount of neuron %d modified from %s to %s", e.NeuronID, e.OldSubaccount, e.NewSubaccount)
}

func (e *SubaccountModifiedError) Unwrap() error { return ErrInvalidNeuron }

// CorruptedNeuronIndexesError reports the defects left by one operation.
// Indexes that reported no defect have already been updated.
type CorruptedNeuronIndexesError struct {
	NeuronID neuron.NeuronID
	Defects  []index.Defect
}

func (e *CorruptedNeuronIndexesError) Error() string {
	reasons := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		reasons[i] = d.String()
	}
	return fmt.Sprintf("Neuron indexes for neuron %d are corrupted: %s", e.NeuronID, strings.Join(reasons, ", "))
}

// Kinds returns the kinds of the corrupted indexes, in report order.
func (e *CorruptedNeuronIndexesError) Kinds() []index.Kind {
	kinds := make([]index.Kind, len(e.Defects))
	for i, d := range e.Defects {
		kinds[i] = d.Index
	}
	return kinds
}
