package cas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/ingestcas/internal/hashutil"
	"github.com/nao1215/ingestcas/internal/model"
)

// Problem is one inconsistency found by Verify.
type Problem struct {
	Path string
	Err  error
}

// String formats the problem for display.
func (p Problem) String() string {
	return fmt.Sprintf("%s: %v", p.Path, p.Err)
}

// VerifyReport summarizes an audit of the store.
type VerifyReport struct {
	Sources              []string
	FilesChecked         int
	PageManifestsChecked int
	Problems             []Problem
}

// OK reports whether the audit found no problems.
func (r *VerifyReport) OK() bool {
	return len(r.Problems) == 0
}

func (r *VerifyReport) addProblem(path string, err error) {
	r.Problems = append(r.Problems, Problem{Path: path, Err: err})
}

// Verify audits the stored files and manifests of dataSource, or of every
// data source when dataSource is empty.
//
// Each stored file is re-hashed with the algorithm named in its manifest and
// compared against both the manifest and its content directory name. Every
// manifest is validated against its JSON schema. Inconsistencies are
// collected in the report; the returned error is reserved for failures to
// read the store itself and for context cancellation.
func (s *Store) Verify(ctx context.Context, dataSource string) (*VerifyReport, error) {
	report := &VerifyReport{}

	sources, err := s.listSources(dataSource)
	if err != nil {
		return nil, err
	}
	report.Sources = sources

	for _, source := range sources {
		if err := s.verifySource(ctx, filepath.Join(s.root, source), report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Store) listSources(dataSource string) ([]string, error) {
	if dataSource != "" {
		dir := s.SourceDir(dataSource)
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("data source %q: %w", dataSource, err)
		}
		return []string{filepath.Base(dir)}, nil
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read CAS root: %w", err)
	}
	var sources []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			sources = append(sources, e.Name())
		}
	}
	sort.Strings(sources)
	return sources, nil
}

func (s *Store) verifySource(ctx context.Context, sourceDir string, report *VerifyReport) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", sourceDir, err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(sourceDir, e.Name())
		switch {
		case e.Name() == model.ScrapedPagesDir:
			if err := verifyPageManifests(ctx, dir, report); err != nil {
				return err
			}
		case hashutil.IsHexDigest(e.Name()):
			if err := verifyContentDir(ctx, dir, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyContentDir(ctx context.Context, dir string, report *VerifyReport) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	dirHash := filepath.Base(dir)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if strings.HasSuffix(name, model.ManifestSuffix) {
			if !present[strings.TrimSuffix(name, model.ManifestSuffix)] {
				report.addProblem(path, ErrMissingContent)
			}
			continue
		}

		report.FilesChecked++
		if !present[name+model.ManifestSuffix] {
			report.addProblem(path, ErrOrphanFile)
			continue
		}
		if err := verifyStoredFile(path, dirHash); err != nil {
			report.addProblem(path, err)
		}
	}
	return nil
}

func verifyStoredFile(path, dirHash string) error {
	manifestPath := path + model.ManifestSuffix
	data, err := os.ReadFile(manifestPath) //nolint:gosec // path is inside the CAS root
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := model.ValidateFileManifestJSON(data); err != nil {
		return err
	}
	entry, err := model.DecodeFileManifest(bytes.NewReader(data))
	if err != nil {
		return err
	}

	hasher, err := hashutil.NewHasher(entry.HashAlgorithm)
	if err != nil {
		return err
	}
	actual, err := hasher.SumFile(path)
	if err != nil {
		return err
	}

	var problems []error
	if actual != dirHash {
		problems = append(problems, fmt.Errorf("%w: content %s, directory %s", ErrHashMismatch, actual, dirHash))
	}
	if entry.ContentHash != actual {
		problems = append(problems, fmt.Errorf("%w: content %s, manifest %s", ErrHashMismatch, actual, entry.ContentHash))
	}
	if info, err := os.Stat(path); err == nil && info.Size() != entry.FileSizeBytes {
		problems = append(problems, fmt.Errorf("%w: %d bytes on disk, manifest %d", ErrSizeMismatch, info.Size(), entry.FileSizeBytes))
	}
	return errors.Join(problems...)
}

func verifyPageManifests(ctx context.Context, dir string, report *VerifyReport) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || !strings.HasSuffix(d.Name(), model.ManifestSuffix) {
			return nil
		}
		report.PageManifestsChecked++
		data, err := os.ReadFile(path) //nolint:gosec // path is inside the CAS root
		if err != nil {
			report.addProblem(path, err)
			return nil
		}
		if err := model.ValidateScrapedPageManifestJSON(data); err != nil {
			report.addProblem(path, err)
		}
		return nil
	})
}
