// Package segment provides the persistent storage regions the neuron indexes
// are laid over.
//
// A [Segment] is a byte-addressable region that only grows, in units of
// [PageSize]. Durability and paging are the implementation's concern; the
// indexes treat a segment as opaque bytes.
//
// # Implementations
//
//   - [Memory]: heap-backed, for tests and non-persistent deployments
//   - [File]: memory-mapped file (mmap on unix, buffered elsewhere)
//
// # Test wrappers
//
//   - [Counting]: counts writes, used to verify that updates only touch what changed
//   - [Faulty]: injects write and grow failures
package segment
