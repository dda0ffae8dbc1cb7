package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/neuronidx/blobstore"
	"github.com/hupe1980/neuronidx/internal/compress"
)

const (
	ManifestFileName = "MANIFEST"
	CurrentFileName  = "CURRENT"
	CurrentVersion   = 1
)

// ErrNoCheckpoint is returned by Load when CURRENT has never been written.
var ErrNoCheckpoint = errors.New("manifest: no checkpoint")

// ErrInvalidCurrent is returned by Load when CURRENT does not name a manifest.
var ErrInvalidCurrent = errors.New("manifest: invalid CURRENT")

var manifestNameRe = regexp.MustCompile(`^` + ManifestFileName + `-(\d{6,})\.json$`)

func manifestName(id uint64) string {
	return fmt.Sprintf("%s-%06d.json", ManifestFileName, id)
}

// parseManifestName returns the checkpoint id encoded in a manifest file name.
func parseManifestName(name string) (uint64, error) {
	m := manifestNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCurrent, name)
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCurrent, name)
	}
	return id, nil
}

// Manifest describes one checkpoint of the neuron indexes.
type Manifest struct {
	Version     int           `json:"version"`
	ID          uint64        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	Compression compress.Type `json:"compression"`
	Segments    []SegmentInfo `json:"segments"`
}

// SegmentInfo describes the stored image of one index segment.
type SegmentInfo struct {
	Index      string `json:"index"`
	Path       string `json:"path"` // Relative to the store prefix
	Size       int64  `json:"size"`
	StoredSize int64  `json:"stored_size"`
	CRC32      uint32 `json:"crc32"`
}

// Segment returns the entry for the named index.
func (m *Manifest) Segment(index string) (SegmentInfo, bool) {
	for _, s := range m.Segments {
		if s.Index == index {
			return s, true
		}
	}
	return SegmentInfo{}, false
}

// Store reads and publishes manifests in a blob store.
//
// Layout under prefix:
//
//	CURRENT                  name of the live manifest
//	MANIFEST-000001.json     one manifest per checkpoint
//	000001/<index>.img       segment images written by the checkpoint
type Store struct {
	blobs  blobstore.BlobStore
	prefix string
	mu     sync.Mutex
}

// NewStore creates a manifest store rooted at prefix.
func NewStore(blobs blobstore.BlobStore, prefix string) *Store {
	return &Store{
		blobs:  blobs,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Path resolves a name relative to the store prefix.
func (s *Store) Path(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// SegmentPath returns the relative path of an index image for checkpoint id.
func SegmentPath(id uint64, index string) string {
	return fmt.Sprintf("%06d/%s.img", id, index)
}

// Load loads the current manifest, or returns ErrNoCheckpoint.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (*Manifest, error) {
	content, err := blobstore.ReadAll(ctx, s.blobs, s.Path(CurrentFileName))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", CurrentFileName, err)
	}

	name := strings.TrimSpace(string(content))
	id, err := parseManifestName(name)
	if err != nil {
		return nil, err
	}
	data, err := blobstore.ReadAll(ctx, s.blobs, s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", name, err)
	}

	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d (expected %d)", m.Version, CurrentVersion)
	}
	if m.ID != id {
		return nil, fmt.Errorf("%w: %s holds checkpoint %d", ErrInvalidCurrent, name, m.ID)
	}

	return &m, nil
}

// NextID returns the id the next checkpoint should use.
func (s *Store) NextID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load(ctx)
	if errors.Is(err, ErrNoCheckpoint) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return m.ID + 1, nil
}

// Save writes m and then points CURRENT at it. Until CURRENT is written
// readers keep seeing the previous manifest.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == 0 {
		return errors.New("manifest: id must be positive")
	}
	m.Version = CurrentVersion

	filename := manifestName(m.ID)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := s.blobs.Put(ctx, s.Path(filename), data); err != nil {
		return fmt.Errorf("write manifest %s: %w", filename, err)
	}

	if err := s.blobs.Put(ctx, s.Path(CurrentFileName), []byte(filename)); err != nil {
		return fmt.Errorf("publish %s: %w", filename, err)
	}
	return nil
}
