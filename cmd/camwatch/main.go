// camwatch: command line viewer for a running httpcam server.
// Polls the still endpoint (or subscribes to the websocket stream with
// -live) and keeps the newest frame in a local file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	envcfg "github.com/rymis/httpcam/internal/config"
	"github.com/rymis/httpcam/internal/log"
	"github.com/rymis/httpcam/pkg/detect"
	"github.com/rymis/httpcam/pkg/live"
	"github.com/rymis/httpcam/pkg/refresh"
)

func main() {
	var (
		server   = flag.String("url", envcfg.ServerURL("http://localhost:8080"), "server address or image URL")
		interval = flag.Duration("interval", 100*time.Millisecond, "wait between frames")
		out      = flag.String("o", "camwatch.jpg", "write frames to this file")
		count    = flag.Int("count", 0, "stop after this many frames (0 = run forever)")
		retry    = flag.Bool("retry", false, "retry failed loads instead of stopping")
		liveMode = flag.Bool("live", false, "subscribe to the websocket stream")
		faces    = flag.Bool("detect", false, "report detected faces per frame")
		cascade  = flag.String("cascade", "cascade/facefinder", "face cascade file for -detect")
		logLevel = flag.String("log-level", "warn", "log level: debug, info, warn or error")
	)
	flag.Parse()

	log.Init(*logLevel)

	fmt.Println("📹 camwatch")
	fmt.Printf("   Server: %s\n", *server)
	fmt.Printf("   Output: %s\n\n", *out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Goodbye!")
		cancel()
	}()

	var det detect.Detector
	if *faces {
		d, err := detect.NewPigoDetector(detect.Config{CascadePath: *cascade})
		if err != nil {
			stdlog.Fatalf("load face detector: %v", err)
		}
		defer d.Close()
		det = d
	}

	mon := &monitor{start: time.Now(), det: det}

	var err error
	if *liveMode {
		err = watchLive(ctx, cancel, *server, *out, *count, mon)
	} else {
		err = watchPolling(ctx, *server, *out, *interval, *count, *retry, mon)
	}
	fmt.Println()

	if err != nil && !errors.Is(err, context.Canceled) {
		stdlog.Fatalf("camwatch: %v", err)
	}
}

// watchPolling drives the refresh loop against the still endpoint.
func watchPolling(ctx context.Context, server, out string, interval time.Duration, count int, retry bool, mon *monitor) error {
	policy := refresh.PolicyHalt
	if retry {
		policy = refresh.PolicyRetry
	}

	sink := refresh.NewRouter(log.L(),
		&refresh.FileSink{Path: out},
		refresh.FuncSink(func(_ context.Context, f refresh.Frame) error {
			mon.report(f.Seq, f.Data)
			return nil
		}),
	)

	r, err := refresh.New(refresh.Config{
		URL:       imageURL(server),
		Interval:  interval,
		MaxFrames: count,
		OnError:   policy,
		Sink:      sink,
		Logger:    log.L(),
	})
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// watchLive subscribes to the websocket feed instead of polling.
func watchLive(ctx context.Context, cancel context.CancelFunc, server, out string, count int, mon *monitor) error {
	c, err := live.NewClient(server)
	if err != nil {
		return err
	}

	sink := &refresh.FileSink{Path: out}
	c.OnFrame = func(data []byte, seq uint64) {
		if err := sink.Display(ctx, refresh.Frame{Data: data, Seq: seq}); err != nil {
			log.Warn("write frame", "error", err)
		}
		mon.report(seq, data)
		if count > 0 && seq >= uint64(count) {
			cancel()
		}
	}
	return c.Run(ctx)
}

// monitor prints the carriage-return status line.
type monitor struct {
	start  time.Time
	frames int
	det    detect.Detector
}

func (m *monitor) report(seq uint64, data []byte) {
	m.frames++
	fps := float64(m.frames) / time.Since(m.start).Seconds()
	line := fmt.Sprintf("\r📷 frame %d | %.1f fps | %d bytes", seq, fps, len(data))
	if m.det != nil {
		if found, err := m.det.Detect(data); err == nil {
			line += fmt.Sprintf(" | %d face(s)", len(found))
		}
	}
	fmt.Print(line + "     ")
}

// imageURL turns a bare server address into the still endpoint URL.
func imageURL(server string) string {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return server
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/image.jpg"
	}
	return u.String()
}
