// Package neuron defines the governance neuron record as seen by the
// secondary indexes.
//
// The record is owned and evolved by the neuron store; the indexes consume it
// read-only. Only the projections the indexes depend on are modelled here:
//
//   - [Neuron.ID]: required for every index operation
//   - [Neuron.Subaccount]: derived from the account bytes, must be 32 bytes
//   - [Neuron.PrincipalIDsWithSpecialPermissions]: controller plus hot keys
//   - [Neuron.TopicFolloweePairs]: current voting delegations
//   - [Neuron.KnownNeuronData]: optional public name
package neuron
