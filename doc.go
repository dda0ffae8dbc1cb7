// Package neuronidx keeps the secondary indexes of a governance neuron store
// consistent with the neurons themselves.
//
// Four indexes are maintained:
//
//   - subaccount: subaccount to neuron id, one to one
//   - principal: controller and hot keys to the neurons they can act on
//   - following: (topic, followee) to the neurons following it
//   - known neuron: public name to neuron id
//
// Each index persists its entries in its own segment (see package segment)
// and keeps an in-memory view for queries.
//
// # Quick Start
//
//	idx := neuronidx.NewHeapBased()
//
//	if err := idx.AddNeuron(n); err != nil {
//	    var corrupted *neuronidx.CorruptedNeuronIndexesError
//	    if errors.As(err, &corrupted) {
//	        // some indexes were updated, the listed ones were not
//	    }
//	}
//
//	ids := idx.NeuronIDsByPrincipal(principal)
//
// File-backed segments survive restarts:
//
//	seg, _ := segment.OpenFile("subaccount.seg")
//	idx, _ := neuronidx.Builder{Subaccount: seg, ...}.Build()
//
// # Error Model
//
// Validation errors (missing id, malformed subaccount, an update that
// changes the id or subaccount) match ErrInvalidNeuron and are returned
// before any index is touched.
//
// Anything an individual index reports (a duplicate entry, a missing entry,
// a name collision, a storage failure) is a defect. Defects never stop the
// remaining indexes from being updated. They are returned together in a
// *CorruptedNeuronIndexesError and are never repaired automatically.
//
// # Checkpoints
//
// Checkpoint copies the four segments to a blobstore.BlobStore (local disk,
// S3, MinIO) and Restore reads them back:
//
//	store, _ := s3.NewStoreFromDefaultConfig(ctx, "bucket", "neurons/")
//	_, err := idx.Checkpoint(ctx, store, neuronidx.WithCompression(neuronidx.CompressionZstd))
//
//	b, _, err := neuronidx.Restore(ctx, store)
//	restored, err := b.Build()
package neuronidx
