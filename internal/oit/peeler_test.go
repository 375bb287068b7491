package oit

import (
	"image/color"
	"testing"
)

var (
	sky      = color.RGBA{G: 255, A: 255}
	halfRed  = color.NRGBA{R: 255, A: 128}
	halfBlue = color.NRGBA{B: 255, A: 128}
	grey     = color.NRGBA{R: 90, G: 90, B: 90, A: 255}
)

func closeRGBA(a, b color.RGBA, tol int) bool {
	d := func(x, y uint8) bool {
		diff := int(x) - int(y)
		return diff <= tol && diff >= -tol
	}
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func TestTwoLayersPeelNearestFirst(t *testing.T) {
	frags := []Fragment{
		{Depth: 0.6, Color: halfBlue},
		{Depth: 0.3, Color: halfRed},
	}
	p := Peeler{Passes: 20, Sky: sky}

	layers := p.Layers(frags)
	if len(layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(layers))
	}
	if layers[0].Depth != 0.3 || layers[1].Depth != 0.6 {
		t.Errorf("layer depths = %v, %v; want 0.3, 0.6", layers[0].Depth, layers[1].Depth)
	}

	want := color.RGBA{R: 128, G: 63, B: 64, A: 255}
	if got := p.Resolve(frags); got != want {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
	if got := SortedOver(frags, sky); !closeRGBA(got, want, 1) {
		t.Errorf("SortedOver = %v, want about %v", got, want)
	}
}

func TestExcessPassesAreIdempotent(t *testing.T) {
	frags := []Fragment{
		{Depth: 0.8, Color: grey, Opaque: true},
		{Depth: 0.2, Color: halfRed},
		{Depth: 0.5, Color: halfBlue},
	}
	base := Peeler{Passes: 3, Sky: sky}.Resolve(frags)
	for _, passes := range []int{4, 5, 20, 64} {
		if got := (Peeler{Passes: passes, Sky: sky}).Resolve(frags); got != base {
			t.Errorf("passes=%d: %v, want %v", passes, got, base)
		}
	}
	if got := SortedOver(frags, sky); !closeRGBA(got, base, 2) {
		t.Errorf("peeling %v diverges from sorted blending %v", base, got)
	}
}

func TestTooFewPassesDropFarLayers(t *testing.T) {
	frags := []Fragment{
		{Depth: 0.2, Color: halfRed},
		{Depth: 0.5, Color: halfBlue},
	}
	one := Peeler{Passes: 1, Sky: sky}
	if n := len(one.Layers(frags)); n != 1 {
		t.Fatalf("layers = %d, want 1", n)
	}
	if got, full := one.Resolve(frags), (Peeler{Passes: 2, Sky: sky}).Resolve(frags); got == full {
		t.Error("one pass should miss the far layer")
	}
}

func TestOpaqueSceneIgnoresSky(t *testing.T) {
	frags := []Fragment{
		{Depth: 0.7, Color: color.NRGBA{R: 10, A: 255}, Opaque: true},
		{Depth: 0.4, Color: grey, Opaque: true},
	}
	p := Peeler{Passes: 20, Sky: sky}
	want := color.RGBA{R: 90, G: 90, B: 90, A: 255}
	if got := p.Resolve(frags); got != want {
		t.Errorf("Resolve = %v, want nearest opaque %v", got, want)
	}
}

func TestOpaqueForcesAlpha(t *testing.T) {
	f := Fragment{Depth: 0.5, Color: color.NRGBA{R: 200, A: 10}, Opaque: true}
	got := Peeler{Passes: 1, Sky: sky}.Resolve([]Fragment{f})
	if got != (color.RGBA{R: 200, A: 255}) {
		t.Errorf("Resolve = %v, want the texel with alpha forced to 1", got)
	}
}

func TestSkyFillsOnlyUncoveredAlpha(t *testing.T) {
	p := Peeler{Passes: 20, Sky: sky}
	if got := p.Resolve(nil); got != sky {
		t.Errorf("empty pixel = %v, want sky %v", got, sky)
	}
	// Fragments at the far plane or outside the depth range never peel.
	far := []Fragment{{Depth: 1, Color: grey, Opaque: true}, {Depth: 1.5, Color: grey}, {Depth: -0.1, Color: grey}}
	if got := p.Resolve(far); got != sky {
		t.Errorf("far/clipped pixel = %v, want sky", got)
	}
	if got := (Peeler{Passes: 0, Sky: sky}).Resolve([]Fragment{{Depth: 0.5, Color: grey, Opaque: true}}); got != sky {
		t.Errorf("zero passes = %v, want sky", got)
	}
}

func TestEqualDepthKeepsFirst(t *testing.T) {
	frags := []Fragment{
		{Depth: 0.5, Color: halfRed},
		{Depth: 0.5, Color: halfBlue},
	}
	layers := Peeler{Passes: 20}.Layers(frags)
	if len(layers) != 1 || layers[0].Color != halfRed {
		t.Errorf("layers = %+v, want only the first fragment", layers)
	}
}

func TestResolveImage(t *testing.T) {
	p := Peeler{Passes: 4, Sky: sky}
	frags := [][]Fragment{
		nil, {{Depth: 0.5, Color: grey, Opaque: true}},
		{{Depth: 0.3, Color: halfRed}}, nil,
	}
	img, err := p.ResolveImage(frags, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(0, 0) != sky || img.RGBAAt(1, 1) != sky {
		t.Error("uncovered pixels must show the sky")
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{R: 90, G: 90, B: 90, A: 255}) {
		t.Errorf("opaque pixel = %v", got)
	}

	if _, err := p.ResolveImage(frags, 3, 2); err == nil {
		t.Error("expected error for mismatched grid")
	}
	if _, err := p.ResolveImage(nil, 0, 0); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestBlendOperators(t *testing.T) {
	opaque := color.RGBA{R: 255, A: 255}
	if got := under(opaque, sky); got != opaque {
		t.Errorf("under opaque = %v, want %v", got, opaque)
	}
	if got := over(sky, opaque); got != opaque {
		t.Errorf("opaque over = %v, want %v", got, opaque)
	}
	if got := under(color.RGBA{}, sky); got != sky {
		t.Errorf("under transparent = %v, want %v", got, sky)
	}
	if got := premultiply(color.NRGBA{R: 255, G: 255, B: 255, A: 0}); got != (color.RGBA{}) {
		t.Errorf("premultiply zero alpha = %v", got)
	}
}
