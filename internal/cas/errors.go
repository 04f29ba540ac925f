package cas

import "errors"

var (
	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrManifestSkipped is returned by SavePageManifest for results that
	// are not persisted: non-SUCCESS results or results without a URL.
	ErrManifestSkipped = errors.New("page manifest skipped")

	// ErrHashMismatch is reported by Verify when a stored file no longer
	// hashes to the directory it lives in.
	ErrHashMismatch = errors.New("content hash mismatch")

	// ErrOrphanFile is reported by Verify for a stored file without manifest.
	ErrOrphanFile = errors.New("stored file has no manifest")
)

var (
	// ErrSizeMismatch is reported by Verify when a stored file's size differs
	// from its manifest.
	ErrSizeMismatch = errors.New("file size mismatch")

	// ErrMissingContent is reported by Verify for a manifest whose file is gone.
	ErrMissingContent = errors.New("manifest refers to a missing file")
)
