// Package asset resolves and decodes the images the renderer uploads as
// textures: per-material mip chains and the six sky cube faces.
//
// Assets are read from an fs.FS so the demo can ship them embedded, load them
// from disk with os.DirFS, or serve them from fstest.MapFS in tests.
package asset

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// DefaultExt is the image extension used when none is configured.
const DefaultExt = "png"

// Errors returned by the loader.
var (
	// ErrNilFS is returned by NewLoader when no file system is given.
	ErrNilFS = errors.New("asset: nil file system")

	// ErrEmptyImage is returned for images with a zero dimension.
	ErrEmptyImage = errors.New("asset: empty image")

	// ErrUnknownFormat is returned for paths whose extension has no decoder.
	ErrUnknownFormat = errors.New("asset: unknown image format")
)

// decoders maps a lower case file extension to its decoder. The decoder is
// chosen by extension rather than through image.Decode: the tga package
// registers itself with an empty magic string that matches any input.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".bmp":  bmp.Decode,
	".webp": webp.Decode,
	".tga":  tga.Decode,
}

// SkyFaces lists the sky cube face names in cube layer order:
// +X, -X, +Y, -Y, +Z, -Z.
var SkyFaces = [6]string{
	"sky_back",
	"sky_front",
	"sky_left",
	"sky_right",
	"sky_top",
	"sky_bottom",
}

// Loader reads images from a file system and caches decoded results.
// It is safe for concurrent use.
type Loader struct {
	fsys fs.FS
	ext  string

	generateMips bool

	mu    sync.RWMutex
	cache map[string]*image.RGBA
}

// NewLoader returns a loader over fsys. An empty ext selects DefaultExt;
// a leading dot is ignored. Extensions without a decoder are rejected with
// ErrUnknownFormat.
func NewLoader(fsys fs.FS, ext string) (*Loader, error) {
	if fsys == nil {
		return nil, ErrNilFS
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExt
	}
	if _, ok := decoders["."+strings.ToLower(ext)]; !ok {
		return nil, fmt.Errorf("%w: .%s", ErrUnknownFormat, ext)
	}
	return &Loader{
		fsys:  fsys,
		ext:   ext,
		cache: make(map[string]*image.RGBA),
	}, nil
}

// Ext returns the configured image extension without the dot.
func (l *Loader) Ext() string { return l.ext }

// MipPath returns the path of mip level i of the named material:
// <name>/<name><i>.<ext>.
func (l *Loader) MipPath(name string, i int) string {
	return path.Join(name, fmt.Sprintf("%s%d.%s", name, i, l.ext))
}

// FacePath returns the path of a sky cube face: <face>.<ext>.
func (l *Loader) FacePath(face string) string {
	return face + "." + l.ext
}

// Mip loads mip level i of the named material.
func (l *Loader) Mip(name string, i int) (*image.RGBA, error) {
	return l.Load(l.MipPath(name, i))
}

// SetGenerateMips makes MipChain derive missing levels above 0 from the
// previous level instead of failing. Off by default. Call it before the
// loader is shared.
func (l *Loader) SetGenerateMips(on bool) { l.generateMips = on }

// MipChain loads levels 0..count-1 of the named material. Any failure aborts
// the whole chain, except that with SetGenerateMips a missing level i > 0 is
// downsampled from level i-1.
func (l *Loader) MipChain(name string, count int) ([]*image.RGBA, error) {
	if count < 1 {
		return nil, fmt.Errorf("asset: %s: mip count %d, need at least 1", name, count)
	}
	levels := make([]*image.RGBA, count)
	for i := range levels {
		img, err := l.Mip(name, i)
		if err != nil {
			if i > 0 && l.generateMips && errors.Is(err, fs.ErrNotExist) {
				levels[i] = Downsample(levels[i-1])
				continue
			}
			return nil, err
		}
		levels[i] = img
	}
	return levels, nil
}

// SkyCube loads the six sky faces in SkyFaces order.
func (l *Loader) SkyCube() ([6]*image.RGBA, error) {
	var faces [6]*image.RGBA
	for i, name := range SkyFaces {
		img, err := l.Load(l.FacePath(name))
		if err != nil {
			return faces, err
		}
		faces[i] = img
	}
	return faces, nil
}

// Load decodes the image at p and converts it to RGBA. Results are cached by
// path; callers must not modify the returned image.
func (l *Loader) Load(p string) (*image.RGBA, error) {
	l.mu.RLock()
	if img, ok := l.cache[p]; ok {
		l.mu.RUnlock()
		return img, nil
	}
	l.mu.RUnlock()

	img, err := l.decode(p)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if cached, ok := l.cache[p]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.cache[p] = img
	l.mu.Unlock()
	return img, nil
}

func (l *Loader) decode(p string) (*image.RGBA, error) {
	dec, ok := decoders[strings.ToLower(path.Ext(p))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, p)
	}
	f, err := l.fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("asset: open %s: %w", p, err)
	}
	defer f.Close()

	src, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("asset: decode %s: %w", p, err)
	}
	if b := src.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyImage, p)
	}
	return ToRGBA(src), nil
}

// ToRGBA returns src as an *image.RGBA anchored at the origin. Images that
// already are RGBA at the origin are returned as is.
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
