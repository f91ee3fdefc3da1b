package transfer

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chartwell-io/chartwell-go/internal/transport"
	"github.com/chartwell-io/chartwell-go/internal/types"
	"github.com/pkg/errors"
)

// Downloader streams server content into local files. Bytes land in a
// temp file first and are renamed into place only once complete, so a
// failed download never leaves a partial file at the destination.
type Downloader struct {
	pipeline     *transport.Pipeline
	logger       types.Logger
	sanitize     func(string) string
	extensionFor func(string) string
}

// NewDownloader creates a downloader. sanitize cleans the caller's
// base name before it touches the filesystem; extensionFor maps the
// response content type to a file extension.
func NewDownloader(pipeline *transport.Pipeline, logger types.Logger, sanitize, extensionFor func(string) string) *Downloader {
	if logger == nil {
		logger = types.NopLogger{}
	}

	return &Downloader{
		pipeline:     pipeline,
		logger:       logger,
		sanitize:     sanitize,
		extensionFor: extensionFor,
	}
}

// Options control a single download
type Options struct {
	// Method overrides the default GET
	Method string

	// Timeout bounds the whole download including the body copy.
	// Defaults to types.DefaultDownloadTimeout.
	Timeout time.Duration

	// KeepExisting refuses to replace an existing destination file
	// instead of overwriting it
	KeepExisting bool
}

// Result reports where a download landed
type Result struct {
	Path        string
	Size        int64
	ContentType string
}

// Download fetches url into dir, deriving the final file name from
// baseName and the response content type. The outcome is always logged
// with the elapsed time.
func (d *Downloader) Download(ctx context.Context, url, dir, baseName string, opts *Options) (result *Result, err error) {
	if opts == nil {
		opts = &Options{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = types.DefaultDownloadTimeout
	}

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Seconds()
		if err != nil {
			d.logger.Error("Download failed", "url", url, "elapsedSeconds", elapsed, "error", err)
		} else {
			d.logger.Info("Download finished",
				"url", url,
				"path", result.Path,
				"bytes", result.Size,
				"elapsedSeconds", elapsed,
			)
		}
	}()

	base := d.sanitize(baseName)
	tmpPath := filepath.Join(dir, base+types.TempSuffix)

	// A leftover temp file from a crashed run is junk; get it out of
	// the way before writing.
	if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
		return nil, errors.Wrap(removeErr, "failed to remove stale temp file")
	}

	resp, err := d.pipeline.Do(ctx, &transport.RequestSpec{
		Method:      method,
		URL:         url,
		Description: "download file",
		Timeout:     timeout,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	size, err := writeTemp(tmpPath, resp.Body)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	finalPath := filepath.Join(dir, base+d.extensionFor(contentType))

	if _, statErr := os.Stat(finalPath); statErr == nil {
		if opts.KeepExisting {
			_ = os.Remove(tmpPath)
			return nil, errors.Wrapf(types.ErrDestinationExists, "%s", finalPath)
		}
		if removeErr := os.Remove(finalPath); removeErr != nil {
			_ = os.Remove(tmpPath)
			return nil, errors.Wrap(removeErr, "failed to remove existing file")
		}
	} else if !os.IsNotExist(statErr) {
		_ = os.Remove(tmpPath)
		return nil, errors.Wrap(statErr, "failed to stat destination")
	}

	// Temp file and destination share a directory, so the move is a
	// same-volume atomic rename.
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, errors.Wrap(err, "failed to move download into place")
	}

	return &Result{
		Path:        finalPath,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// writeTemp streams body into path and closes the file before the
// caller renames it. The temp file is removed on failure.
func writeTemp(path string, body io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create temp file")
	}

	size, err := io.Copy(f, body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return 0, errors.Wrap(err, "failed to write download")
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return 0, errors.Wrap(err, "failed to close temp file")
	}

	return size, nil
}
