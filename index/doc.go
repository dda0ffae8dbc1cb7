// Package index implements the secondary indexes kept over the neuron store.
//
// Four indexes are provided:
//
//   - SubaccountIndex: subaccount to neuron id, one-to-one
//   - PrincipalIndex: principal to the neurons it controls or is a hot key of
//   - FollowingIndex: (topic, followee) to the neurons following it
//   - KnownNeuronIndex: unique public name to neuron id
//
// All of them implement NeuronIndex, which derives entries from a whole
// neuron record and reports inconsistencies as a Defect instead of failing.
// An index never repairs itself: a defect is a signal that the index and the
// primary store have drifted apart.
//
// The stable indexes persist every mutation as a record in an append-only
// log laid over a segment.Segment, and rebuild their in-memory view by
// replaying that log when opened. HeapFollowingIndex is the in-memory
// variant used where no persistence is wanted.
//
// None of the types in this package are safe for concurrent use.
package index
