package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/neuronidx/neuron"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// NeuronConfig shapes the neurons generated by RNG.
type NeuronConfig struct {
	// Principals is the size of the controller and hot key pool. A small
	// pool makes neurons share principals.
	Principals int

	// MaxHotKeys bounds the hot keys per neuron.
	MaxHotKeys int

	// Followees is the size of the followee pool. Followees are drawn with
	// a Zipf skew, so a few neurons are followed by most.
	Followees int

	// MaxTopics bounds the topics a neuron follows on.
	MaxTopics int

	// KnownRate is the probability that a neuron has a known name.
	KnownRate float64
}

// DefaultNeuronConfig returns a config with plenty of overlap between neurons.
func DefaultNeuronConfig() NeuronConfig {
	return NeuronConfig{
		Principals: 16,
		MaxHotKeys: 3,
		Followees:  32,
		MaxTopics:  4,
		KnownRate:  0.2,
	}
}

// Principal returns the i-th principal of the shared pool.
func Principal(i int) neuron.PrincipalID {
	return neuron.NewSelfAuthenticatingID(fmt.Appendf(nil, "principal-%d", i))
}

// Subaccount returns a subaccount unique to id.
func Subaccount(id neuron.NeuronID) []byte {
	account := make([]byte, neuron.SubaccountSize)
	copy(account, "neuronidx")
	binary.BigEndian.PutUint64(account[neuron.SubaccountSize-8:], uint64(id))
	return account
}

// KnownName returns the known neuron name generated for id.
func KnownName(id neuron.NeuronID) string {
	return fmt.Sprintf("known-neuron-%d", id)
}

// Neuron generates a valid neuron with the given id.
func (r *RNG) Neuron(id neuron.NeuronID, cfg NeuronConfig) *neuron.Neuron {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := &neuron.Neuron{
		ID:      id.Ptr(),
		Account: Subaccount(id),
	}
	r.randomizeLocked(n, cfg)
	return n
}

// Mutate returns a copy of n with new principals, followees and known
// name. The id and subaccount are kept, so the result is a valid update.
func (r *RNG) Mutate(n *neuron.Neuron, cfg NeuronConfig) *neuron.Neuron {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := n.Clone()
	r.randomizeLocked(out, cfg)
	return out
}

func (r *RNG) randomizeLocked(n *neuron.Neuron, cfg NeuronConfig) {
	n.Controller = nil
	n.HotKeys = nil
	n.Followees = nil
	n.KnownNeuronData = nil

	if cfg.Principals > 0 {
		c := Principal(r.rand.Intn(cfg.Principals))
		n.Controller = &c
		for range r.rand.Intn(cfg.MaxHotKeys + 1) {
			n.HotKeys = append(n.HotKeys, Principal(r.rand.Intn(cfg.Principals)))
		}
	}

	if cfg.Followees > 0 && cfg.MaxTopics > 0 {
		n.Followees = make(map[neuron.Topic]neuron.Followees)
		for range r.rand.Intn(cfg.MaxTopics + 1) {
			topic := neuron.Topic(r.rand.Intn(int(neuron.TopicServiceNervousSystemManagement) + 1))
			var f neuron.Followees
			for range 1 + r.rand.Intn(3) {
				f.Followees = append(f.Followees, neuron.NeuronID(r.zipfLocked(cfg.Followees, 1.2)))
			}
			n.Followees[topic] = f
		}
	}

	if r.rand.Float64() < cfg.KnownRate {
		n.KnownNeuronData = &neuron.KnownNeuronData{Name: KnownName(*n.ID)}
	}
}
