package render

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"

	"github.com/gen2brain/go-fitz"
)

// jpegQuality is the encoder quality for rendered page images
const jpegQuality = 90

// Document is a PDF page source. Each rendered page is encoded as JPEG and
// persisted to a registry-tracked temporary file.
type Document struct {
	doc   *fitz.Document
	files *TempFiles
}

// Open opens a PDF from a path. Failure here is fatal for the whole
// document; there is no per-page recovery from an unopenable source.
func Open(path string, files *TempFiles) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	return &Document{doc: doc, files: files}, nil
}

// OpenBytes opens a PDF held in memory
func OpenBytes(data []byte, files *TempFiles) (*Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return &Document{doc: doc, files: files}, nil
}

// PageCount returns the number of pages in the document
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// RenderPage renders page i to a JPEG image and writes it to a tracked
// temporary file. The returned bytes are what gets submitted to the model.
func (d *Document) RenderPage(i int) ([]byte, error) {
	img, err := d.doc.Image(i)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding page %d: %w", i+1, err)
	}

	if err := d.persistPage(i, buf.Bytes()); err != nil {
		// The in-memory image is still usable; the artifact is diagnostic
		slog.Warn("Could not persist page image", "page", i+1, "error", err)
	}

	return buf.Bytes(), nil
}

// persistPage writes the rendered page to a tracked temp file
func (d *Document) persistPage(i int, data []byte) error {
	f, err := d.files.Create(fmt.Sprintf("invoice-page-%d-*.jpg", i+1))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing page image: %w", err)
	}
	return nil
}

// Close releases the document
func (d *Document) Close() error {
	return d.doc.Close()
}
