package cas

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/ingestcas/internal/hashutil"
	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/transport"
)

const (
	// stagingDirName is the private staging area below the CAS root.
	stagingDirName = ".staging"

	// unknownSourceName replaces a data source name that sanitizes to nothing.
	unknownSourceName = "unknown_source"

	dirPerm  = 0o750
	filePerm = 0o640
)

// Store is a content-addressable store rooted at a local directory.
// A Store is safe for concurrent use; the only shared state is the
// filesystem below its root.
type Store struct {
	root   string
	client *http.Client
	hasher *hashutil.Hasher
	now    func() time.Time

	// sumFile hashes a staged download. It is hasher.SumFile.
	sumFile func(path string) (string, error)

	// maxFileSize bounds downloads. Zero means unlimited.
	maxFileSize int64

	// mediaMetadata enables EXIF extraction for stored images.
	mediaMetadata bool
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient sets the client used by AcquireFile. It should be built by
// transport.NewClient with the long file timeout. Without it the Store uses
// a direct client bounded by transport.DefaultFileTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

// WithHasher sets the content hash algorithm. The default is SHA-256.
func WithHasher(h *hashutil.Hasher) Option {
	return func(s *Store) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock replaces time.Now for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxFileSize bounds the size of downloaded files in bytes.
func WithMaxFileSize(size int64) Option {
	return func(s *Store) {
		s.maxFileSize = size
	}
}

// WithMediaMetadata toggles EXIF extraction for stored images.
func WithMediaMetadata(enabled bool) Option {
	return func(s *Store) {
		s.mediaMetadata = enabled
	}
}

// NewStore creates a Store rooted at root. The root is made absolute but
// not created; directories appear on first write.
func NewStore(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: empty CAS root", ErrValidation)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve CAS root %q: %w", root, err)
	}

	s := &Store{
		root:          abs,
		hasher:        hashutil.Default(),
		now:           time.Now,
		mediaMetadata: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = transport.NewDefaultClient(transport.DefaultFileTimeout)
	}
	s.sumFile = s.hasher.SumFile
	return s, nil
}

// Root returns the absolute CAS root.
func (s *Store) Root() string {
	return s.root
}

// HashAlgorithm returns the name of the configured hash algorithm.
func (s *Store) HashAlgorithm() string {
	return s.hasher.Name()
}

// SourceDir returns the directory holding everything for dataSource.
func (s *Store) SourceDir(dataSource string) string {
	return filepath.Join(s.root, hashutil.SanitizeFilename(dataSource, unknownSourceName))
}

// ContentDir returns the directory for content with the given hash.
func (s *Store) ContentDir(dataSource, contentHash string) string {
	return filepath.Join(s.SourceDir(dataSource), contentHash)
}

// PageManifestDir returns the directory for page manifests keyed by urlHash.
func (s *Store) PageManifestDir(dataSource, urlHash string) string {
	return filepath.Join(s.SourceDir(dataSource), model.ScrapedPagesDir, urlHash)
}

// StagingDir returns the private staging directory.
func (s *Store) StagingDir() string {
	return filepath.Join(s.root, stagingDirName)
}

// writeManifestAtomic encodes v into path through a temporary sibling and
// a rename, so readers never observe a partial manifest.
func writeManifestAtomic(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best effort cleanup
		}
	}()

	if err = model.EncodeManifest(tmp, v); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return err
	}
	if err = tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary manifest: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move manifest into place: %w", err)
	}
	return nil
}
