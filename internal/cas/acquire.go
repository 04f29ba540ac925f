package cas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/transport"
)

// FileRequest describes one file to acquire.
type FileRequest struct {
	// URL is the http(s) location of the file. Required.
	URL string

	// DataSource groups stored files under {root}/{DataSource}. Required.
	DataSource string

	// SourcePageURL and LinkTitle are optional provenance recorded in the
	// manifest.
	SourcePageURL string
	LinkTitle     string
}

// stagedFile is a completed download waiting in the staging directory.
type stagedFile struct {
	path        string
	filename    string
	size        int64
	contentType string

	// headers holds every response header, manifestHeaders the subset
	// recorded in the manifest.
	headers         map[string]string
	manifestHeaders map[string]string
}

// AcquireFile downloads req.URL, hashes it, places it at
// {root}/{dataSource}/{hash}/{filename} and writes the sibling manifest.
//
// The status of the returned result names the first stage that failed:
// FAILED_VALIDATION, FAILED_DOWNLOAD, FAILED_HASHING or FAILED_STORAGE.
// When only the manifest write fails the result still carries the path of
// the stored file.
func (s *Store) AcquireFile(ctx context.Context, req FileRequest) model.FileResult {
	result := model.FileResult{
		URL:                  req.URL,
		DataSource:           req.DataSource,
		HashAlgorithm:        s.hasher.Name(),
		DownloadTimestampUTC: model.NewUTCTime(s.now()),
	}

	if strings.TrimSpace(req.URL) == "" {
		return fail(result, model.StatusFailedValidation, fmt.Errorf("%w: missing URL", ErrValidation))
	}
	if strings.TrimSpace(req.DataSource) == "" {
		return fail(result, model.StatusFailedValidation, fmt.Errorf("%w: missing data source name", ErrValidation))
	}

	staged, err := s.download(ctx, req.URL)
	if err != nil {
		status := model.StatusFailedDownload
		if errors.Is(err, transport.ErrInvalidURL) {
			status = model.StatusFailedValidation
		}
		result.HTTPStatusCode = transport.StatusCode(err)
		return fail(result, status, err)
	}
	// No-op once the file has been renamed into the store.
	defer removeIfExists(staged.path)

	result.OriginalFilename = staged.filename
	result.FileSizeBytes = staged.size
	result.ContentType = staged.contentType
	result.HTTPHeaders = staged.headers

	contentHash, err := s.sumFile(staged.path)
	if err != nil {
		return fail(result, model.StatusFailedHashing, err)
	}
	result.ContentHash = contentHash

	entry := model.FileManifestEntry{
		DataSourceName:        req.DataSource,
		OriginalFilename:      staged.filename,
		SourceURL:             req.URL,
		SourcePageURL:         req.SourcePageURL,
		LinkTitle:             req.LinkTitle,
		ContentHash:           contentHash,
		HashAlgorithm:         s.hasher.Name(),
		StoragePath:           model.PlaceholderStoragePath,
		StorageType:           model.StorageTypeLocalCAS,
		DownloadTimestampUTC:  result.DownloadTimestampUTC,
		FileSizeBytes:         staged.size,
		ContentType:           staged.contentType,
		HTTPHeaders:           staged.manifestHeaders,
		ManifestSchemaVersion: model.SchemaVersion,
	}

	dir := s.ContentDir(req.DataSource, contentHash)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fail(result, model.StatusFailedStorage, fmt.Errorf("failed to create content directory: %w", err))
	}
	storagePath := filepath.Join(dir, staged.filename)
	if err := os.Rename(staged.path, storagePath); err != nil {
		return fail(result, model.StatusFailedStorage, fmt.Errorf("failed to move file into store: %w", err))
	}
	result.StoragePath = storagePath
	entry.StoragePath = storagePath

	if s.mediaMetadata {
		entry.MediaMetadata = extractMediaMetadata(storagePath, staged.contentType)
	}

	manifestPath := storagePath + model.ManifestSuffix
	if err := writeManifestAtomic(manifestPath, &entry); err != nil {
		return fail(result, model.StatusFailedStorage, err)
	}
	result.ManifestPath = manifestPath
	result.Status = model.StatusSuccess
	return result
}

// download streams rawURL into a new file in the staging directory.
// On error nothing is left behind in staging.
func (s *Store) download(ctx context.Context, rawURL string) (_ *stagedFile, err error) {
	req, err := transport.NewRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Do(s.client, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if s.maxFileSize > 0 && resp.ContentLength > s.maxFileSize {
		return nil, fmt.Errorf("%w: declared %d bytes", transport.ErrBodyTooLarge, resp.ContentLength)
	}

	if err := os.MkdirAll(s.StagingDir(), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	f, err := os.CreateTemp(s.StagingDir(), "download-*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			removeIfExists(f.Name())
		}
	}()

	var body io.Reader = resp.Body
	if s.maxFileSize > 0 {
		body = io.LimitReader(resp.Body, s.maxFileSize+1)
	}
	size, err := io.Copy(f, body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &transport.NetworkError{URL: rawURL, Err: fmt.Errorf("download interrupted: %w", err)}
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, fmt.Errorf("%w (%d bytes)", transport.ErrBodyTooLarge, s.maxFileSize)
	}
	if err = f.Chmod(filePerm); err != nil {
		return nil, fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err = f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close staging file: %w", err)
	}

	return &stagedFile{
		path:            f.Name(),
		filename:        filenameFor(resp.Header.Get("Content-Disposition"), rawURL),
		size:            size,
		contentType:     resp.Header.Get("Content-Type"),
		headers:         transport.ResponseHeaders(resp.Header),
		manifestHeaders: transport.CaptureHeaders(resp.Header),
	}, nil
}

func fail(result model.FileResult, status model.Status, err error) model.FileResult {
	result.Status = status
	result.ErrorCategory = model.Categorize(err)
	if status == model.StatusFailedValidation {
		result.ErrorCategory = model.CategoryValidation
	}
	result.ErrorMessage = err.Error()
	return result
}

func removeIfExists(path string) {
	_ = os.Remove(path) //nolint:errcheck // absent after a successful rename
}
