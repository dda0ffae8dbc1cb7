// Package testutil provides testing utilities for neuronidx.
//
// This package is intended for use in tests only. It generates
// deterministic random neurons for property-style tests.
//
//	rng := testutil.NewRNG(seed)
//	n := rng.Neuron(42, testutil.DefaultNeuronConfig())
//	updated := rng.Mutate(n, testutil.DefaultNeuronConfig())
package testutil
