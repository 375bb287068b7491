// Command peeldemo renders the depth-peeling demo scene headless and saves
// the last frame.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/peel"
	"github.com/gogpu/peel/scene"
)

func main() {
	var (
		width   = flag.Uint("width", peel.DefaultWidth, "image width")
		height  = flag.Uint("height", peel.DefaultHeight, "image height")
		passes  = flag.Int("passes", peel.DefaultPeelPasses, "peel passes per frame")
		frames  = flag.Int("frames", 60, "frames to render")
		assets  = flag.String("assets", "gfx", "texture directory")
		ext     = flag.String("ext", "png", "texture file extension")
		genMips = flag.Bool("genmips", false, "downsample mip levels missing from the texture directory")
		spin    = flag.Float64("spin", 0.5, "player yaw per frame in degrees")
		output  = flag.String("output", "peel.png", "output file (.png or .webp)")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	peel.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []peel.Option{
		peel.WithSize(uint32(*width), uint32(*height)), //nolint:gosec // flag values
		peel.WithPeelPasses(*passes),
		peel.WithAssets(os.DirFS(*assets)),
		peel.WithAssetExt(*ext),
	}
	if *genMips {
		opts = append(opts, peel.WithGeneratedMips())
	}
	app, err := peel.NewApp(opts...)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer app.Close()

	yaw := float32(*spin)
	app.Step = func(_ int, s *scene.Scene) { s.SpinPlayer(yaw, 0) }

	start := time.Now()
	if err := app.Run(ctx, *frames); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	elapsed := time.Since(start)

	img, err := app.Renderer.Snapshot()
	if err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}
	if err := peel.SaveImage(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("Rendered %d frames in %v (last frame %v), saved %s (%dx%d)\n",
		*frames, elapsed, app.Renderer.FrameTime(), *output, *width, *height)
}
