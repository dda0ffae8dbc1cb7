// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.NewStoreFromDefaultConfig(ctx, "my-bucket", "governance/indexes/",
//	    config.WithRegion("us-east-1"),
//	)
//
//	manifest, err := indexes.Checkpoint(ctx, store)
//
// Plain S3 has no compare-and-swap, so two writers publishing CURRENT at the
// same time can overwrite each other. DDBCommitStore stores CURRENT as a
// versioned item in DynamoDB and rejects the losing writer with
// ErrConcurrentModification.
//
// # Features
//
//   - Range reads
//   - Multipart uploads for large checkpoint images
//   - CRC32C checksums on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
