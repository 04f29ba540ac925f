package hashutil

import "errors"

var (
	// ErrNotFound is returned when the path to hash does not reference a
	// regular file.
	ErrNotFound = errors.New("file not found or not a regular file")

	// ErrIO is returned when reading the file fails part-way through.
	ErrIO = errors.New("i/o failure while hashing")

	// ErrUnknownAlgorithm is returned by NewHasher for unregistered names.
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
)
