package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/gen2brain/heic"
)

// ImageSource is a single-page source backed by an uploaded photo of an
// invoice. The image is converted to JPEG up front so the extraction client
// sees the same payload as a rendered PDF page.
type ImageSource struct {
	jpegData []byte
}

// OpenImage builds an ImageSource from image data, converting HEIC and
// standard formats to JPEG. The converted image is persisted to a tracked
// temporary file like any rendered page.
func OpenImage(data []byte, contentType string, files *TempFiles) (*ImageSource, error) {
	jpegData, err := toJPEG(data, contentType)
	if err != nil {
		return nil, err
	}

	f, err := files.Create("invoice-page-1-*.jpg")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.Write(jpegData); err != nil {
		return nil, fmt.Errorf("writing page image: %w", err)
	}

	return &ImageSource{jpegData: jpegData}, nil
}

// PageCount returns 1; an image upload is always a single page
func (s *ImageSource) PageCount() int {
	return 1
}

// RenderPage returns the converted JPEG for page 0
func (s *ImageSource) RenderPage(i int) ([]byte, error) {
	if i != 0 {
		return nil, fmt.Errorf("page %d out of range for single-page image", i+1)
	}
	return s.jpegData, nil
}

// Close is a no-op for an in-memory image
func (s *ImageSource) Close() error {
	return nil
}

// toJPEG converts any supported image format to JPEG
func toJPEG(data []byte, contentType string) ([]byte, error) {
	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not supported by Go's standard
	// image package
	if isHEICFormat(data) || isHEICMimeType(contentType) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format.
// HEIC files carry an ftyp box at offset 4 with a HEIC-related brand.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
