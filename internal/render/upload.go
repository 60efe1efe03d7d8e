package render

import (
	"fmt"
	"strings"
)

// Source is a page source that can render pages to JPEG images. Both PDF
// documents and single-image uploads satisfy it.
type Source interface {
	PageCount() int
	RenderPage(i int) ([]byte, error)
	Close() error
}

// OpenUpload opens an uploaded file as a page source. PDF uploads are
// spooled to a registry-tracked temporary copy before opening; image
// uploads become a single-page source.
func OpenUpload(data []byte, contentType string, files *TempFiles) (Source, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	if mimeType == "application/pdf" {
		f, err := files.Create("invoice-upload-*.pdf")
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing upload copy: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("closing upload copy: %w", err)
		}
		return Open(f.Name(), files)
	}

	return OpenImage(data, mimeType, files)
}
