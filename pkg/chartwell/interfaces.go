package chartwell

import (
	"context"
)

// AuthService handles the session lifecycle
type AuthService interface {
	// SignIn authenticates with the configured credentials. It returns
	// true when the server established a full session, and false with a
	// nil error when the response was well-formed but carried no user
	// id, which older servers do.
	SignIn(ctx context.Context) (bool, error)

	// SignOut invalidates the server-side session and clears local
	// session state. Local state is cleared even when the server call
	// fails.
	SignOut(ctx context.Context) error

	// Session returns a snapshot of the current session
	Session() (*Session, error)

	// SaveSession saves the session to a file
	SaveSession(path string) error

	// LoadSession loads a previously saved session from a file
	LoadSession(path string) error
}

// FileService moves file content between the server and local disk
type FileService interface {
	// Download fetches url into dir, deriving the final file name from
	// baseName and the response content type. Bytes are staged in a
	// temp file and renamed into place once complete.
	Download(ctx context.Context, url, dir, baseName string, opts *DownloadOptions) (*DownloadResult, error)

	// Upload sends a multipart payload and decodes the JSON response
	// into out. A nil out discards the response body.
	Upload(ctx context.Context, method, url string, payload *MimePayload, out interface{}, opts *UploadOptions) error
}

// RequestService issues raw authenticated requests against endpoints
// this library has no typed surface for. Callers build the URL; the
// service supplies headers, diagnostics and decoding.
type RequestService interface {
	// JSON sends a request and decodes the response document into out
	JSON(ctx context.Context, method, url, description string, out interface{}, opts *RequestOptions) error

	// Discard sends a request and throws the response body away. The
	// boolean reports that a response was obtained at all.
	Discard(ctx context.Context, method, url, description string, opts *RequestOptions) (bool, error)
}
