// httpcam: webcam over HTTP.
// Serves the latest frame, an MJPEG stream and websocket feeds, with an
// optional on-disk archive and optional face blurring.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	envcfg "github.com/rymis/httpcam/internal/config"
	"github.com/rymis/httpcam/internal/log"
	"github.com/rymis/httpcam/pkg/archive"
	"github.com/rymis/httpcam/pkg/camera"
	"github.com/rymis/httpcam/pkg/capture"
	"github.com/rymis/httpcam/pkg/config"
	"github.com/rymis/httpcam/pkg/detect"
	"github.com/rymis/httpcam/pkg/frame"
	"github.com/rymis/httpcam/pkg/hub"
	"github.com/rymis/httpcam/pkg/web"
)

const probeDevices = 10

func main() {
	var (
		addr       = flag.String("a", "", "listen address (default 0.0.0.0:8080)")
		device     = flag.Int("c", -1, "index of the camera to use (default 0)")
		fps        = flag.Int("fps", 0, "capture frames per second (default 4)")
		output     = flag.String("o", "", "write image archive into directory")
		maxAge     = flag.Int("max-age", 0, "maximum archive age in hours (default 24)")
		resolution = flag.String("resolution", "", "capture resolution, WxH or WxH/fps")
		list       = flag.Bool("l", false, "list cameras and known resolutions")
		configPath = flag.String("config", "", "YAML configuration file")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn or error")
		fake       = flag.Bool("fake", false, "use a synthetic test camera")
		blur       = flag.Bool("blur", false, "blur detected faces before publishing")
	)
	flag.Parse()

	if *list {
		listDevices()
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			stdlog.Fatalf("load config: %v", err)
		}
	}

	// Environment, then flags, override the file.
	cfg.Listen = envcfg.ListenAddr(cfg.Listen)
	cfg.Camera.Device = envcfg.CameraIndex(cfg.Camera.Device)
	cfg.Archive.Dir = envcfg.OutputDir(cfg.Archive.Dir)

	if *addr != "" {
		cfg.Listen = *addr
	}
	if *device >= 0 {
		cfg.Camera.Device = *device
	}
	if *fps > 0 {
		cfg.Camera.Framerate = *fps
	}
	if *output != "" {
		cfg.Archive.Dir = *output
	}
	if *maxAge > 0 {
		cfg.Archive.MaxAge = time.Duration(*maxAge) * time.Hour
	}
	if *resolution != "" {
		f, err := camera.ParseFormat(*resolution)
		if err != nil {
			stdlog.Fatal(err)
		}
		cfg.Camera.Width = f.Width
		cfg.Camera.Height = f.Height
		if f.FPS > 0 {
			cfg.Camera.Framerate = f.FPS
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *fake {
		cfg.Camera.Fake = true
	}
	if *blur {
		cfg.Privacy.BlurFaces = true
	}
	if err := cfg.Validate(); err != nil {
		stdlog.Fatal(err)
	}

	log.Init(cfg.LogLevel)

	fmt.Println("📷 httpcam")
	fmt.Printf("   Listen:  %s\n", cfg.Listen)
	if cfg.Camera.Fake {
		fmt.Printf("   Camera:  fake (%dx%d @ %d fps)\n",
			cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.Framerate)
	} else {
		fmt.Printf("   Camera:  %d (%dx%d @ %d fps)\n",
			cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.Framerate)
	}
	if cfg.Archive.Dir != "" {
		fmt.Printf("   Archive: %s (keep %s)\n", cfg.Archive.Dir, cfg.Archive.MaxAge)
	}
	if cfg.Privacy.BlurFaces {
		fmt.Printf("   Privacy: blurring faces (%s)\n", cfg.Privacy.Cascade)
	}
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Shutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil && err != context.Canceled {
		stdlog.Fatalf("httpcam: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	settings := cfg.CameraSettings()

	var (
		dev camera.Device
		err error
	)
	if cfg.Camera.Fake {
		dev = camera.NewMockDevice(camera.Format{
			Width:  settings.Width,
			Height: settings.Height,
			FPS:    settings.Framerate,
		})
	} else {
		dev, err = camera.OpenDevice(cfg.Camera.Device, settings)
		if err != nil {
			return fmt.Errorf("open camera %d: %w", cfg.Camera.Device, err)
		}
	}
	defer dev.Close()

	cache := frame.NewCache()
	cameraHub := hub.New("camera")

	var arc *archive.Archive
	if cfg.Archive.Dir != "" {
		arc, err = archive.New(archive.Config{
			Dir:           cfg.Archive.Dir,
			FPS:           cfg.Archive.FPS,
			MaxAge:        cfg.Archive.MaxAge,
			SegmentFrames: cfg.Archive.SegmentFrames,
		})
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arc.Close()
	}

	var filter capture.Filter
	if cfg.Privacy.BlurFaces {
		det, err := detect.NewPigoDetector(detect.Config{
			CascadePath: cfg.Privacy.Cascade,
			MinQuality:  cfg.Privacy.MinQuality,
		})
		if err != nil {
			return fmt.Errorf("load face detector: %w", err)
		}
		defer det.Close()
		filter = detect.NewBlur(det, 0, settings.Quality)
	}

	capCfg := capture.Config{
		Device:  dev,
		Manager: camera.NewManager(settings),
		Cache:   cache,
		Hub:     cameraHub,
		Filter:  filter,
	}
	if arc != nil {
		capCfg.Recorder = arc
	}
	svc, err := capture.New(capCfg)
	if err != nil {
		return err
	}

	srv := web.NewServer(web.Config{
		Addr:      cfg.Listen,
		Cache:     cache,
		Capture:   svc,
		Archive:   arc,
		CameraHub: cameraHub,
		RateLimit: cfg.Web.RateLimit,
	})

	// The server runs the shared hub; everything else gets its own
	// goroutine and the first one to fail brings the rest down.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 3)
	go func() { errCh <- svc.Run(runCtx) }()
	go func() { errCh <- srv.Run(runCtx) }()
	if arc != nil {
		go func() { errCh <- arc.Run(runCtx) }()
	}

	err = <-errCh
	stop()
	return err
}

func listDevices() {
	infos := camera.List(probeDevices)
	if len(infos) == 0 {
		fmt.Println("no cameras found")
	}
	for _, info := range infos {
		fmt.Printf("camera %d: %dx%d @ %d fps\n", info.Index, info.Width, info.Height, info.FPS)
	}

	fmt.Println("known resolutions:")
	for _, f := range camera.CommonFormats() {
		fmt.Printf("  %s\n", f)
	}
}
