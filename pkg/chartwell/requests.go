package chartwell

import (
	"context"

	"github.com/chartwell-io/chartwell-go/internal/transport"
)

// requestService implements the RequestService interface
type requestService struct {
	client *Client
}

func (r *requestService) buildSpec(method, url, description string, opts *RequestOptions) *transport.RequestSpec {
	spec := &transport.RequestSpec{
		Method:      method,
		URL:         url,
		Description: description,
	}
	if opts != nil {
		spec.Body = opts.Body
		spec.ContentType = opts.ContentType
		spec.Timeout = opts.Timeout
	}
	return spec
}

// JSON sends a request and decodes the response document into out
func (r *requestService) JSON(ctx context.Context, method, url, description string, out interface{}, opts *RequestOptions) error {
	if err := r.client.pipeline.DoJSON(ctx, r.buildSpec(method, url, description, opts), out); err != nil {
		r.client.captureError(ctx, "requests.json", err)
		return err
	}
	return nil
}

// Discard sends a request and throws the response body away
func (r *requestService) Discard(ctx context.Context, method, url, description string, opts *RequestOptions) (bool, error) {
	ok, err := r.client.pipeline.DoDiscard(ctx, r.buildSpec(method, url, description, opts))
	if err != nil {
		r.client.captureError(ctx, "requests.discard", err)
		return false, err
	}
	return ok, nil
}
