// Package hashutil provides content hashing and filename sanitization for
// the content-addressable store.
//
// Hashes are lowercase hex digests. The default algorithm is SHA-256, and
// the algorithm name travels with every hash that ends up in a manifest so
// that stores written with an alternate algorithm (BLAKE2b-256, BLAKE3)
// remain self-describing.
//
// Hex encoding guarantees that a digest is safe to use as a single path
// segment. SanitizeFilename provides the same guarantee for names that come
// from the network (Content-Disposition headers, URL paths).
package hashutil
