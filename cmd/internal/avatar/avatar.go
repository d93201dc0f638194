// Package avatar normalizes uploaded profile images to a fixed-size
// canonical PNG before storage.
package avatar

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	// jpeg decoder for the accepted upload encodings; png registers itself
	// through the direct import above.
	_ "image/jpeg"
)

const (
	// MaxUploadBytes is the upload size ceiling.
	MaxUploadBytes = 1_000_000

	// Width and Height define the canonical avatar dimensions.
	Width  = 250
	Height = 250
)

var (
	// ErrUnsupportedType is returned when the filename extension is not allowed.
	ErrUnsupportedType = errors.New("avatar: unsupported file type")

	// ErrBadImage is returned when the payload does not decode as an image.
	ErrBadImage = errors.New("avatar: undecodable image data")

	// ErrTooLarge is returned when the payload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("avatar: upload too large")
)

// allowedExts mirrors the accepted source encodings. Checking the filename
// extension (not the content) is the documented contract; Normalize still
// rejects bytes that do not decode.
var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AllowedFilename reports whether the upload's filename extension is accepted.
func AllowedFilename(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}

// Normalize decodes the uploaded bytes, scales them to Width x Height, and
// re-encodes as PNG. Undecodable input maps to ErrBadImage so callers can
// distinguish bad uploads from storage failures.
func Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadImage
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrBadImage
	}

	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
