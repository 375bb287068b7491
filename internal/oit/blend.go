package oit

import "image/color"

// Premultiplied 8-bit compositing, matching an RGBA8Unorm render target.

// under composites src beneath dst: src*(1-dstA) + dst.
// This is the front-to-back blend used by the composite and sky passes
// (src factor OneMinusDstAlpha, dst factor One).
func under(dst, src color.RGBA) color.RGBA {
	inv := 255 - dst.A
	return color.RGBA{
		R: addClamp(mulDiv255(src.R, inv), dst.R),
		G: addClamp(mulDiv255(src.G, inv), dst.G),
		B: addClamp(mulDiv255(src.B, inv), dst.B),
		A: addClamp(mulDiv255(src.A, inv), dst.A),
	}
}

// over composites src on top of dst: src + dst*(1-srcA).
func over(dst, src color.RGBA) color.RGBA {
	inv := 255 - src.A
	return color.RGBA{
		R: addClamp(src.R, mulDiv255(dst.R, inv)),
		G: addClamp(src.G, mulDiv255(dst.G, inv)),
		B: addClamp(src.B, mulDiv255(dst.B, inv)),
		A: addClamp(src.A, mulDiv255(dst.A, inv)),
	}
}

// premultiply converts a straight-alpha colour to premultiplied form, as the
// base fragment shader does before writing the accumulation texture.
func premultiply(c color.NRGBA) color.RGBA {
	return color.RGBA{
		R: mulDiv255(c.R, c.A),
		G: mulDiv255(c.G, c.A),
		B: mulDiv255(c.B, c.A),
		A: c.A,
	}
}

// mulDiv255 returns round(a*b/255).
func mulDiv255(a, b byte) byte {
	return byte((uint16(a)*uint16(b) + 127) / 255)
}

func addClamp(a, b byte) byte {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return byte(sum)
}
