package chartwell

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"

	"github.com/pkg/errors"
)

// MimePart is one section of a multipart message
type MimePart struct {
	// Name is the form field name
	Name string

	// FileName, when set, marks the part as a file attachment
	FileName string

	// ContentType sets the part's content type when non-empty
	ContentType string

	// Body holds the part's content
	Body []byte
}

// EncodeMultipart assembles parts into a fully buffered multipart
// message ready for FileService.Upload.
func EncodeMultipart(parts ...MimePart) (*MimePayload, error) {
	if len(parts) == 0 {
		return nil, ErrEmptyPayload
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, part := range parts {
		header := make(textproto.MIMEHeader)
		if part.FileName != "" {
			header.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name=%q; filename=%q`, part.Name, part.FileName))
		} else {
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, part.Name))
		}
		if part.ContentType != "" {
			header.Set("Content-Type", part.ContentType)
		}

		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create part %q", part.Name)
		}
		if _, err := io.Copy(w, bytes.NewReader(part.Body)); err != nil {
			return nil, errors.Wrapf(err, "failed to write part %q", part.Name)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close multipart writer")
	}

	return &MimePayload{
		Boundary: writer.Boundary(),
		Body:     buf.Bytes(),
	}, nil
}
