package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names as they appear in manifests.
const (
	AlgorithmSHA256  = "sha256"
	AlgorithmBLAKE2b = "blake2b-256"
	AlgorithmBLAKE3  = "blake3"

	// DefaultAlgorithm is used whenever no algorithm is configured.
	DefaultAlgorithm = AlgorithmSHA256
)

// chunkSize bounds the memory used while hashing files from disk.
const chunkSize = 64 * 1024

// algorithms maps algorithm names to hash constructors.
var algorithms = map[string]func() hash.Hash{
	AlgorithmSHA256: sha256.New,
	AlgorithmBLAKE2b: func() hash.Hash {
		// New256 only fails for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil) //nolint:errcheck // nil key never fails
		return h
	},
	AlgorithmBLAKE3: func() hash.Hash {
		return blake3.New()
	},
}

// Algorithms returns the registered algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hasher computes hex digests with one fixed algorithm.
// A Hasher holds no mutable state and is safe for concurrent use.
type Hasher struct {
	name   string
	newFun func() hash.Hash
}

// NewHasher returns a Hasher for the named algorithm.
// An empty name selects DefaultAlgorithm.
func NewHasher(name string) (*Hasher, error) {
	if name == "" {
		name = DefaultAlgorithm
	}
	fn, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return &Hasher{name: name, newFun: fn}, nil
}

// Default returns the SHA-256 hasher.
func Default() *Hasher {
	return &Hasher{name: AlgorithmSHA256, newFun: sha256.New}
}

// Name returns the algorithm name recorded in manifests.
func (h *Hasher) Name() string {
	return h.name
}

// Sum returns the hex digest of b.
func (h *Hasher) Sum(b []byte) string {
	d := h.newFun()
	d.Write(b) //nolint:errcheck // hash.Hash.Write never returns an error
	return hex.EncodeToString(d.Sum(nil))
}

// SumString returns the hex digest of the UTF-8 bytes of s.
func (h *Hasher) SumString(s string) string {
	return h.Sum([]byte(s))
}

// SumReader streams r through the hash in bounded chunks.
func (h *Hasher) SumReader(r io.Reader) (string, error) {
	d := h.newFun()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(d, r, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// SumFile hashes the file at path without loading it into memory.
// It returns ErrNotFound when path is missing, is a directory, or is
// otherwise not a regular file, and ErrIO when reading fails.
func (h *Hasher) SumFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the staging area or the store
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	return h.SumReader(f)
}

// HashBytes returns the SHA-256 hex digest of content.
func HashBytes(content []byte) string {
	return Default().Sum(content)
}

// HashString returns the SHA-256 hex digest of the UTF-8 bytes of s.
// It is used for canonical URL identities.
func HashString(s string) string {
	return Default().SumString(s)
}

// HashFile returns the SHA-256 hex digest of the file at path.
func HashFile(path string) (string, error) {
	return Default().SumFile(path)
}

// IsHexDigest reports whether s looks like a digest produced by this
// package: non-empty, lowercase hex, even length.
func IsHexDigest(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
