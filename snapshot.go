package peel

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// EncodeWebP writes img as lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, img, nil)
}

// SaveImage writes img to path, choosing PNG or WebP by the file extension.
func SaveImage(path string, img image.Image) (err error) {
	var encode func(io.Writer, image.Image) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		encode = EncodePNG
	case ".webp":
		encode = EncodeWebP
	default:
		return fmt.Errorf("peel: unsupported snapshot format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("peel: create snapshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("peel: close snapshot: %w", cerr)
		}
	}()
	if err := encode(f, img); err != nil {
		return fmt.Errorf("peel: encode %s: %w", path, err)
	}
	return nil
}
