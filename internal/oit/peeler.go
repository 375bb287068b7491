// Package oit is a CPU reference of the depth-peeling compositor.
//
// It resolves per-pixel fragment lists with the same predicates and blend
// equations as the GPU frame: each pass keeps the nearest fragment strictly
// behind the previous layer, layers are composited front to back with
// src*(1-dstA) + dst, and the sky is composited last under everything. All
// arithmetic is premultiplied 8-bit, like the RGBA8 render targets.
package oit

import (
	"fmt"
	"image"
	"image/color"
	"sort"
)

// Fragment is one rasterized surface sample covering a pixel.
type Fragment struct {
	// Depth is the clip-space depth in [0, 1]; smaller is nearer.
	Depth float32

	// Color is the straight-alpha texel the surface samples.
	Color color.NRGBA

	// Opaque forces alpha to 1, as for opaque materials.
	Opaque bool
}

// shaded returns the premultiplied colour the fragment writes.
func (f Fragment) shaded() color.RGBA {
	c := f.Color
	if f.Opaque {
		c.A = 255
	}
	return premultiply(c)
}

func (f Fragment) clipped() bool { return f.Depth < 0 || f.Depth > 1 }

// Peeler resolves fragment lists by depth peeling.
type Peeler struct {
	// Passes is the number of layers peeled.
	Passes int

	// Sky is the premultiplied colour composited beneath all layers.
	Sky color.RGBA
}

// Layers returns the fragments extracted by successive passes, nearest
// first. A pass that finds nothing ends the sequence; fragments sharing a
// depth with an extracted one are lost, as on the GPU.
func (p Peeler) Layers(frags []Fragment) []Fragment {
	var out []Fragment
	peeled := float32(0)
	for range p.Passes {
		nearest, ok := nextLayer(frags, peeled)
		if !ok {
			break
		}
		out = append(out, nearest)
		peeled = nearest.Depth
	}
	return out
}

// nextLayer returns the first nearest fragment strictly behind peeled.
// The strict comparisons mirror the shader discard (z <= peeled) and the
// hardware Less test against a buffer cleared to 1.0.
func nextLayer(frags []Fragment, peeled float32) (Fragment, bool) {
	var nearest Fragment
	depth := float32(1)
	found := false
	for _, f := range frags {
		if f.clipped() || f.Depth <= peeled || f.Depth >= depth {
			continue
		}
		nearest, depth, found = f, f.Depth, true
	}
	return nearest, found
}

// Resolve returns the final colour of one pixel.
func (p Peeler) Resolve(frags []Fragment) color.RGBA {
	var acc color.RGBA
	for _, layer := range p.Layers(frags) {
		acc = under(acc, layer.shaded())
	}
	return under(acc, p.Sky)
}

// ResolveImage resolves a w x h grid of fragment lists stored row-major.
func (p Peeler) ResolveImage(frags [][]Fragment, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 || len(frags) != w*h {
		return nil, fmt.Errorf("oit: %d fragment lists for a %dx%d image", len(frags), w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, p.Resolve(frags[y*w+x]))
		}
	}
	return img, nil
}

// SortedOver composites frags back to front with the over operator on top
// of sky. It is the result exact sorting would give and what peeling
// converges to once Passes covers every distinct depth.
func SortedOver(frags []Fragment, sky color.RGBA) color.RGBA {
	sorted := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		if !f.clipped() && f.Depth < 1 {
			sorted = append(sorted, f)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Depth > sorted[j].Depth })

	acc := sky
	for _, f := range sorted {
		acc = over(acc, f.shaded())
	}
	return acc
}
