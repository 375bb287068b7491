// Package peel renders a small 3D scene with order-independent
// transparency by depth peeling on WebGPU.
//
// # Overview
//
// Every frame is drawn in a fixed number of passes. Each peel pass renders
// the scene into an offscreen accumulation texture, keeping only the nearest
// fragment strictly behind the layer extracted by the previous pass, and the
// layer is then composited front to back under what the target already
// holds. Two depth buffers alternate between being written and being read.
// After the last layer the sky cube fills whatever coverage remains.
//
// # Quick Start
//
//	import "github.com/gogpu/peel"
//
//	r := peel.NewRenderer(peel.WithSize(800, 600), peel.WithAssets(os.DirFS("gfx")))
//	if err := r.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	s, _ := scene.New()
//	for range 60 {
//	    _ = s.Update()
//	    data := s.Renderables()
//	    _ = r.Render(&data, s.Player())
//	}
//	img, _ := r.Snapshot()
//
// App wraps exactly this loop.
//
// # Devices
//
// By default Initialize opens a Vulkan device. A host application can lend
// its own device with WithDeviceProvider, and tests inject a hal device
// directly with WithHAL.
//
// # Logging
//
// peel is silent by default. SetLogger enables structured logging through
// log/slog for this package and its internal GPU code.
package peel
