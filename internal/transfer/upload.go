package transfer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chartwell-io/chartwell-go/internal/transport"
	"github.com/chartwell-io/chartwell-go/internal/types"
	"github.com/pkg/errors"
)

// Uploader sends fully assembled multipart payloads. Bodies are held
// in memory and shipped in one request; there is no streaming or
// chunking here.
type Uploader struct {
	pipeline *transport.Pipeline
	logger   types.Logger
}

// NewUploader creates a new uploader
func NewUploader(pipeline *transport.Pipeline, logger types.Logger) *Uploader {
	if logger == nil {
		logger = types.NopLogger{}
	}

	return &Uploader{
		pipeline: pipeline,
		logger:   logger,
	}
}

// SendMultipart sends payload to url as a multipart/mixed message with
// the payload's boundary marker. On success the caller owns the
// response body.
func (u *Uploader) SendMultipart(ctx context.Context, method, url string, payload *types.MimePayload, timeout time.Duration) (*http.Response, error) {
	if payload == nil || len(payload.Body) == 0 {
		return nil, types.ErrEmptyPayload
	}
	if payload.Boundary == "" {
		return nil, errors.Wrap(types.ErrEmptyPayload, "payload carries no boundary marker")
	}
	if method == "" {
		method = http.MethodPost
	}

	u.logger.Debug("Uploading multipart payload", "url", url, "bytes", len(payload.Body))

	start := time.Now()
	resp, err := u.pipeline.Do(ctx, &transport.RequestSpec{
		Method:      method,
		URL:         url,
		Description: "upload multipart payload",
		Body:        payload.Body,
		ContentType: fmt.Sprintf("multipart/mixed; boundary=%s", payload.Boundary),
		Timeout:     timeout,
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("Upload finished",
		"url", url,
		"bytes", len(payload.Body),
		"elapsedSeconds", time.Since(start).Seconds(),
	)

	return resp, nil
}
