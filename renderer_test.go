package peel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/peel/asset"
	"github.com/gogpu/peel/internal/gpu"
	"github.com/gogpu/peel/scene"
)

func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func encodePNG(t *testing.T, size int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// testAssets lays out the reference textures: one level for the triangle
// materials, a six level chain for the floor and six sky faces.
func testAssets(t *testing.T) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	add := func(name string, levels, size int, c color.NRGBA) {
		for i := 0; i < levels; i++ {
			fsys[fmt.Sprintf("%s/%s%d.png", name, name, i)] = &fstest.MapFile{Data: encodePNG(t, max(1, size>>i), c)}
		}
	}
	add("Purple", 1, 16, color.NRGBA{R: 160, B: 200, A: 128})
	add("Blue", 1, 16, color.NRGBA{B: 255, A: 128})
	add("floor", 6, 32, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
	for _, face := range asset.SkyFaces {
		fsys[face+".png"] = &fstest.MapFile{Data: encodePNG(t, 8, color.NRGBA{G: 120, B: 255, A: 255})}
	}
	return fsys
}

func newTestRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	device, queue := createNoopDevice(t)
	base := []Option{WithSize(64, 48), WithAssets(testAssets(t)), WithHAL(device, queue)}
	r := NewRenderer(append(base, opts...)...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRenderBeforeInitializeIsNoop(t *testing.T) {
	r := NewRenderer()
	s, err := scene.New()
	if err != nil {
		t.Fatal(err)
	}
	data := s.Renderables()
	if err := r.Render(&data, s.Player()); err != nil {
		t.Errorf("Render before Initialize = %v, want nil", err)
	}
	if r.Ready() {
		t.Error("renderer ready before Initialize")
	}
	if r.FrameTime() != 0 {
		t.Error("frame time recorded without a frame")
	}
	if _, err := r.Snapshot(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Snapshot before Initialize: %v", err)
	}
	r.Wait()
}

func TestRendererInitializeAndRender(t *testing.T) {
	var frames atomic.Int32
	r := newTestRenderer(t, WithPeelPasses(4), WithFrameTimeHandler(func(time.Duration) { frames.Add(1) }))

	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !r.Ready() {
		t.Fatal("renderer not ready after Initialize")
	}
	// Second call is a no-op.
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}

	s, err := scene.New()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Update(); err != nil {
			t.Fatal(err)
		}
		data := s.Renderables()
		if err := r.Render(&data, s.Player()); err != nil {
			t.Fatalf("Render %d: %v", i, err)
		}
	}
	r.Wait()
	if got := frames.Load(); got != 2 {
		t.Errorf("completed frames = %d, want 2", got)
	}

	img, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 48) {
		t.Errorf("snapshot bounds = %v", img.Bounds())
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if r.Ready() {
		t.Error("renderer ready after Close")
	}
	if err := r.Initialize(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Initialize after Close: %v", err)
	}
}

func TestCloseWithHandlerReadingFrameTime(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }

	var r *Renderer
	var seen atomic.Int64
	r = newTestRenderer(t, WithFrameTimeHandler(func(d time.Duration) {
		<-release
		seen.Store(int64(r.FrameTime()))
		_ = r.Ready()
	}))
	t.Cleanup(unblock)

	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s, err := scene.New()
	if err != nil {
		t.Fatal(err)
	}
	data := s.Renderables()
	if err := r.Render(&data, s.Player()); err != nil {
		t.Fatalf("Render: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Close() }()

	// Let Close start waiting on the frame before the handler runs.
	time.Sleep(20 * time.Millisecond)
	if err := r.Render(&data, s.Player()); err != nil {
		t.Errorf("Render while closing = %v, want nil", err)
	}
	unblock()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close deadlocked with a handler calling FrameTime")
	}
	if seen.Load() <= 0 {
		t.Error("handler did not observe the frame time")
	}
	if r.Ready() {
		t.Error("renderer ready after Close")
	}
}

func TestRendererRejectsInvalidData(t *testing.T) {
	r := newTestRenderer(t, WithPeelPasses(1))
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	s, err := scene.New()
	if err != nil {
		t.Fatal(err)
	}
	data := s.Renderables()
	data.Counts[scene.Triangle] = 21
	if err := r.Render(&data, s.Player()); !errors.Is(err, ErrInvalidRenderData) {
		t.Errorf("odd triangles: %v", err)
	}
	data.Counts[scene.Triangle] = 2000
	if err := r.Render(&data, s.Player()); !errors.Is(err, ErrInvalidRenderData) ||
		!errors.Is(err, scene.ErrCapacityExceeded) {
		t.Errorf("over capacity: %v", err)
	}
}

func TestRendererInitializeErrors(t *testing.T) {
	device, queue := createNoopDevice(t)

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"no assets", []Option{WithHAL(device, queue)}, ErrNoAssets},
		{"zero passes", []Option{WithHAL(device, queue), WithAssets(testAssets(t)), WithPeelPasses(0)}, ErrInvalidPeelPasses},
		{"zero size", []Option{WithHAL(device, queue), WithAssets(testAssets(t)), WithSize(0, 10)}, nil},
		{"missing mips", []Option{WithHAL(device, queue), WithAssets(testAssets(t)), WithMipCounts(1, 1, 7)}, nil},
		{"half device", []Option{WithHAL(device, nil), WithAssets(testAssets(t))}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(tt.opts...)
			defer r.Close()
			err := r.Initialize(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if r.Ready() {
				t.Error("failed Initialize left the renderer ready")
			}
		})
	}
}

func TestRendererGeneratedMips(t *testing.T) {
	// Only level 0 of Purple and Blue is on disk.
	strict := newTestRenderer(t, WithMipCounts(2, 2, 6))
	if err := strict.Initialize(context.Background()); err == nil {
		t.Fatal("expected missing mip level to fail without generated mips")
	}

	r := newTestRenderer(t, WithMipCounts(2, 2, 6), WithGeneratedMips())
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !r.Ready() {
		t.Error("renderer not ready")
	}
}

func TestRendererCancelledInitialize(t *testing.T) {
	r := newTestRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Initialize(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if r.Ready() {
		t.Error("cancelled Initialize left the renderer ready")
	}
}

func TestRendererSurfaceTarget(t *testing.T) {
	device, queue := createNoopDevice(t)

	off, err := gpu.NewOffscreenTarget(device, queue, 64, 48)
	if err != nil {
		t.Fatal(err)
	}
	defer off.Destroy()

	view, err := off.AcquireView()
	if err != nil {
		t.Fatal(err)
	}
	target := NewSurfaceTarget(view, 64, 48, gputypes.TextureFormatRGBA8Unorm)

	r := NewRenderer(WithSize(64, 48), WithAssets(testAssets(t)), WithHAL(device, queue), WithTarget(target))
	defer r.Close()
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	s, _ := scene.New()
	data := s.Renderables()
	if err := r.Render(&data, s.Player()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := r.Snapshot(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Snapshot with external target: %v", err)
	}
}
