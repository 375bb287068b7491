package asset

import "image"

// Downsample returns a half-size copy of src, averaging each 2x2 block.
// Odd edges repeat the last row or column. Each dimension is at least 1, so
// repeated calls produce the max(1, w>>i) x max(1, h>>i) chain a material
// expects.
func Downsample(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	dstW, dstH := max(1, srcW/2), max(1, srcH/2)
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))

	for dy := 0; dy < dstH; dy++ {
		for dx := 0; dx < dstW; dx++ {
			sx, sy := 2*dx, 2*dy
			x1, y1 := min(sx+1, srcW-1), min(sy+1, srcH-1)
			p0 := src.PixOffset(b.Min.X+sx, b.Min.Y+sy)
			p1 := src.PixOffset(b.Min.X+x1, b.Min.Y+sy)
			p2 := src.PixOffset(b.Min.X+sx, b.Min.Y+y1)
			p3 := src.PixOffset(b.Min.X+x1, b.Min.Y+y1)
			d := dst.PixOffset(dx, dy)
			for c := 0; c < 4; c++ {
				sum := uint16(src.Pix[p0+c]) + uint16(src.Pix[p1+c]) + uint16(src.Pix[p2+c]) + uint16(src.Pix[p3+c])
				dst.Pix[d+c] = byte(sum / 4)
			}
		}
	}
	return dst
}

// GenerateMipChain returns base followed by count-1 successively
// downsampled levels. base is not copied.
func GenerateMipChain(base *image.RGBA, count int) []*image.RGBA {
	if base == nil || count < 1 {
		return nil
	}
	levels := make([]*image.RGBA, count)
	levels[0] = base
	for i := 1; i < count; i++ {
		levels[i] = Downsample(levels[i-1])
	}
	return levels
}
