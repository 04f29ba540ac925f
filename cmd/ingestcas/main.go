// Package main provides the entry point for the ingestcas CLI.
//
// ingestcas acquires files, scraped page metadata and JSON API data into a
// content-addressable store with a provenance manifest for every item.
//
// Usage:
//
//	ingestcas run -c sources.yaml
//	ingestcas download <url> --source NAME
//
// See --help for all available options.
package main

// main is the entry point for ingestcas.
func main() {
	Execute()
}
