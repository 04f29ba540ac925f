// Package cas stores acquired resources in a content-addressable layout
// and writes their provenance manifests.
//
// # Layout
//
//	{root}/{dataSource}/{contentHash}/{filename}
//	{root}/{dataSource}/{contentHash}/{filename}.manifest.json
//	{root}/{dataSource}/scraped_pages_manifests/{urlHash}/{name}.manifest.json
//	{root}/.staging/
//
// Data source names and filenames are passed through
// hashutil.SanitizeFilename before they become path components.
//
// # Atomicity
//
// Downloads stream into a private file under {root}/.staging/ so that the
// final placement is a rename on the same filesystem. Manifests are written
// to a temporary sibling and renamed into place; concurrent writers of the
// same manifest resolve as last-writer-wins. The staging file is removed on
// every exit path, including context cancellation, so the staging directory
// is empty whenever no acquisition is in flight.
//
// # Results
//
// AcquireFile never returns a Go error. Every outcome, including failures,
// is a model.FileResult tagged with a model.Status. SavePageManifest returns
// ErrManifestSkipped for results that must not be persisted and a hard error
// when the manifest cannot be written.
package cas
