package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

// Image MIME types accepted for extraction
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEHEIC = "image/heic"
	MIMEHEIF = "image/heif"
)

var accepted = map[string]bool{
	MIMEJPEG: true,
	MIMEPNG:  true,
	MIMEWebP: true,
	MIMEHEIC: true,
	MIMEHEIF: true,
}

// decodable formats get a header decode check; HEIC/HEIF are accepted on sniff
var decodable = map[string]bool{
	MIMEJPEG: true,
	MIMEPNG:  true,
	MIMEWebP: true,
}

// Accepted reports whether mimeType can be sent for extraction
func Accepted(mimeType string) bool {
	return accepted[mimeType]
}

// DetectMIME sniffs the content type of data
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// Inspect reads an uploaded file into an analyzable image. It returns the
// sniffed MIME type, or a *domain.FileReadError when the bytes are empty, not
// an accepted image type, or fail to decode.
func Inspect(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &domain.FileReadError{Name: name, Err: errors.New("file is empty")}
	}

	mimeType := DetectMIME(data)
	if !Accepted(mimeType) {
		return "", &domain.FileReadError{Name: name, Err: fmt.Errorf("unsupported type %s", mimeType)}
	}

	if decodable[mimeType] {
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", &domain.FileReadError{Name: name, Err: err}
		}
	}

	return mimeType, nil
}
