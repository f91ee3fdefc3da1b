package chartwell

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/chartwell-io/chartwell-go/internal/transfer"
	"github.com/pkg/errors"
)

// fileService implements the FileService interface
type fileService struct {
	client     *Client
	downloader *transfer.Downloader
	uploader   *transfer.Uploader
}

// Download fetches url into dir
func (s *fileService) Download(ctx context.Context, url, dir, baseName string, opts *DownloadOptions) (*DownloadResult, error) {
	result, err := s.downloader.Download(ctx, url, dir, baseName, opts)
	if err != nil {
		s.client.captureError(ctx, "files.download", err)
		return nil, err
	}
	return result, nil
}

// Upload sends a multipart payload and decodes the JSON response
func (s *fileService) Upload(ctx context.Context, method, url string, payload *MimePayload, out interface{}, opts *UploadOptions) error {
	var timeout time.Duration
	if opts != nil {
		timeout = opts.Timeout
	}

	resp, err := s.uploader.SendMultipart(ctx, method, url, payload, timeout)
	if err != nil {
		s.client.captureError(ctx, "files.upload", err)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read upload response")
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(ErrMalformedResponse, "failed to parse upload response: %v", err)
	}

	return nil
}
