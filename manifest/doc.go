// Package manifest records which blobs make up a checkpoint of the neuron
// indexes and publishes checkpoints atomically through a CURRENT pointer.
package manifest
