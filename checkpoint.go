package neuronidx

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/neuronidx/blobstore"
	"github.com/hupe1980/neuronidx/index"
	"github.com/hupe1980/neuronidx/internal/compress"
	"github.com/hupe1980/neuronidx/manifest"
	"github.com/hupe1980/neuronidx/resource"
	"github.com/hupe1980/neuronidx/segment"
)

var (
	// ErrNoCheckpoint is returned by Restore when the store holds no checkpoint.
	ErrNoCheckpoint = manifest.ErrNoCheckpoint

	// ErrChecksumMismatch is returned by Restore when an image does not
	// match its manifest entry.
	ErrChecksumMismatch = errors.New("checkpoint image checksum mismatch")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checkpoint copies the four index segments to store and publishes them as
// one checkpoint. Images are written first, then the manifest, then the
// CURRENT pointer, so readers never observe a partial checkpoint.
//
// Checkpoint must not run concurrently with index operations.
func (x *Indexes) Checkpoint(ctx context.Context, store blobstore.BlobStore, opts ...CheckpointOption) (*manifest.Manifest, error) {
	start := time.Now()
	o := applyCheckpointOptions(opts)

	m, err := x.checkpoint(ctx, store, o)

	var stored int64
	var id uint64
	if m != nil {
		id = m.ID
		for _, s := range m.Segments {
			stored += s.StoredSize
		}
	}
	x.metrics.RecordCheckpoint(time.Since(start), stored, err)
	x.logger.LogCheckpoint(ctx, id, stored, err)
	return m, err
}

func (x *Indexes) checkpoint(ctx context.Context, store blobstore.BlobStore, o checkpointOptions) (*manifest.Manifest, error) {
	ms := manifest.NewStore(store, o.prefix)

	id, err := ms.NextID(ctx)
	if err != nil {
		return nil, err
	}

	b := Builder{
		Subaccount:  x.subaccount.Segment(),
		Principal:   x.principal.Segment(),
		Following:   x.following.Segment(),
		KnownNeuron: x.knownNeuron.Segment(),
	}

	infos := make([]manifest.SegmentInfo, numIndexes)
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range b.segments() {
		g.Go(func() error {
			info, err := writeImage(gctx, store, ms, o, id, s.kind, s.seg)
			if err != nil {
				return fmt.Errorf("checkpoint %s index: %w", s.kind, err)
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &manifest.Manifest{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		Compression: o.compression,
		Segments:    infos,
	}
	if err := ms.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func writeImage(ctx context.Context, store blobstore.BlobStore, ms *manifest.Store, o checkpointOptions, id uint64, kind index.Kind, seg segment.Segment) (manifest.SegmentInfo, error) {
	rc := o.controller

	if err := rc.AcquireBackground(ctx); err != nil {
		return manifest.SegmentInfo{}, err
	}
	defer rc.ReleaseBackground()

	size := seg.Size()
	if err := rc.AcquireMemory(ctx, size); err != nil {
		return manifest.SegmentInfo{}, err
	}
	defer rc.ReleaseMemory(size)

	raw, err := segment.ReadAll(seg)
	if err != nil {
		return manifest.SegmentInfo{}, err
	}

	stored, err := compress.Encode(raw, o.compression)
	if err != nil {
		return manifest.SegmentInfo{}, err
	}

	if err := rc.AcquireIO(ctx, len(stored)); err != nil {
		return manifest.SegmentInfo{}, err
	}

	path := manifest.SegmentPath(id, kind.String())
	if err := store.Put(ctx, ms.Path(path), stored); err != nil {
		return manifest.SegmentInfo{}, err
	}

	return manifest.SegmentInfo{
		Index:      kind.String(),
		Path:       path,
		Size:       int64(len(raw)),
		StoredSize: int64(len(stored)),
		CRC32:      crc32.Checksum(raw, castagnoli),
	}, nil
}

// Restore loads the current checkpoint from store into fresh in-memory
// segments. Build the returned Builder to obtain Indexes.
func Restore(ctx context.Context, store blobstore.BlobStore, opts ...CheckpointOption) (Builder, *manifest.Manifest, error) {
	o := applyCheckpointOptions(opts)
	ms := manifest.NewStore(store, o.prefix)

	m, err := ms.Load(ctx)
	if err != nil {
		return Builder{}, nil, err
	}

	var b Builder
	segs := make([]segment.Segment, numIndexes)
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range b.segments() {
		info, ok := m.Segment(s.kind.String())
		if !ok {
			return Builder{}, nil, fmt.Errorf("checkpoint %d has no %s index", m.ID, s.kind)
		}
		g.Go(func() error {
			seg, err := readImage(gctx, store, ms, o.controller, m.Compression, info)
			if err != nil {
				return fmt.Errorf("restore %s index: %w", s.kind, err)
			}
			segs[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Builder{}, nil, err
	}

	for i, s := range b.segments() {
		b.set(s.kind, segs[i])
	}
	return b, m, nil
}

func readImage(ctx context.Context, store blobstore.BlobStore, ms *manifest.Store, rc *resource.Controller, c Compression, info manifest.SegmentInfo) (segment.Segment, error) {
	if err := rc.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer rc.ReleaseBackground()

	if err := rc.AcquireMemory(ctx, info.Size); err != nil {
		return nil, err
	}
	defer rc.ReleaseMemory(info.Size)

	if err := rc.AcquireIO(ctx, int(info.StoredSize)); err != nil {
		return nil, err
	}

	stored, err := blobstore.ReadAll(ctx, store, ms.Path(info.Path))
	if err != nil {
		return nil, err
	}

	raw, err := compress.Decode(stored, c)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) != info.Size || crc32.Checksum(raw, castagnoli) != info.CRC32 {
		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, info.Path)
	}

	seg := segment.NewMemory()
	if err := segment.Load(seg, raw); err != nil {
		return nil, err
	}
	return seg, nil
}
