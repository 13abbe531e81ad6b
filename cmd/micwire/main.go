// Command micwire captures live microphone audio, compresses it into Opus
// packets on a background goroutine, and either reports throughput,
// publishes the packets to NATS, or decodes them into a level meter.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emmett/micwire/internal/audio"
	"github.com/emmett/micwire/internal/config"
	"github.com/emmett/micwire/internal/observe"
	"github.com/emmett/micwire/internal/transport"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.micwirerc or /etc/micwire/config.yaml)")
	audioDevice = flag.String("device", "", "Input device name, exact match (default: system default input)")
	sampleRate  = flag.Int("rate", 0, "Target sample rate in Hz: 48000, 24000, 16000, 12000, 8000")
	frameSize   = flag.Int("frame", 0, "Frame size in 48kHz reference samples: 2880, 1920, 960, 480, 240, 120")
	application = flag.String("application", "", "Opus coding mode: voip, audio, lowdelay")
	listDevices = flag.Bool("list-devices", false, "List available input devices and exit")
	publish     = flag.Bool("publish", false, "Publish encoded packets to NATS")
	natsURL     = flag.String("nats-url", "", "NATS server URL (default from config)")
	subject     = flag.String("subject", "", "NATS subject for packets (default from config)")
	streamID    = flag.String("stream-id", "", "Stream identifier stamped into published packets")
	meter       = flag.Bool("meter", false, "Decode packets locally and print an RMS level meter")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty: config setting)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Printf("micwire v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		return 0
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlagOverrides(cfg)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if *listDevices {
		return runListDevices()
	}

	captureCfg, err := cfg.CaptureConfig()
	if err != nil {
		slog.Error("invalid capture configuration", "err", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Enabled {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceVersion: Version,
		})
		if err != nil {
			slog.Error("failed to initialize metrics provider", "err", err)
			return 1
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("metrics provider shutdown error", "err", err)
			}
		}()
		captureCfg.Metrics = observe.Default()
		go serveMetrics(cfg.Metrics.Addr)
	}

	session, err := audio.NewSession(captureCfg)
	if err != nil {
		slog.Error("failed to create capture session", "err", err)
		return 1
	}
	defer func() { _ = session.Close() }()

	slog.Info("micwire starting",
		"version", Version,
		"device", captureCfg.Device,
		"rate", captureCfg.SampleRate.String(),
		"frame", captureCfg.FrameSize.String(),
		"application", captureCfg.Application.String())

	switch {
	case *publish:
		if err := runPublish(ctx, cfg, captureCfg, session); err != nil {
			slog.Error("publish mode failed", "err", err)
			return 1
		}
	case *meter:
		runMeter(ctx, session)
	default:
		runStats(ctx, session)
	}

	slog.Info("shutting down")
	return 0
}

func applyFlagOverrides(cfg *config.Config) {
	if *audioDevice != "" {
		cfg.Audio.Device = *audioDevice
	}
	if *sampleRate != 0 {
		cfg.Audio.SampleRate = *sampleRate
	}
	if *frameSize != 0 {
		cfg.Audio.FrameSize = *frameSize
	}
	if *application != "" {
		cfg.Audio.Application = *application
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if *subject != "" {
		cfg.NATS.Subject = *subject
	}
	if *streamID != "" {
		cfg.NATS.StreamID = *streamID
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}
}

func runListDevices() int {
	devices, err := audio.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("No input devices found.")
		return 0
	}
	fmt.Println("Available input devices:")
	for _, d := range devices {
		fmt.Printf("  %s\n", d)
	}
	return 0
}

// runStats consumes packets and logs a once-per-second throughput summary.
func runStats(ctx context.Context, session *audio.Session) {
	var packets, bytes atomic.Int64
	go session.ReceivePackets(func(p []byte) {
		packets.Add(1)
		bytes.Add(int64(len(p)))
	})

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Info("capture stats",
				"packets_per_s", packets.Swap(0),
				"bytes_per_s", bytes.Swap(0))
		}
	}
}

// runPublish forwards every packet to NATS until interrupted.
func runPublish(ctx context.Context, cfg *config.Config, captureCfg audio.CaptureConfig, session *audio.Session) error {
	conn, err := transport.Connect(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	streamID := cfg.NATS.StreamID
	if streamID == "" {
		host, _ := os.Hostname()
		streamID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	pub := transport.NewPublisher(conn, cfg.NATS.Subject, streamID, captureCfg.SampleRate.Hz())

	go session.ReceivePackets(func(p []byte) {
		if err := pub.Publish(p); err != nil {
			slog.Warn("failed to publish packet", "err", err)
		}
	})

	slog.Info("publishing packets", "subject", cfg.NATS.Subject, "stream_id", streamID)
	<-ctx.Done()
	return nil
}

// runMeter decodes packets locally and prints an RMS level meter.
func runMeter(ctx context.Context, session *audio.Session) {
	go session.Receive(func(frame []float32) {
		level := rms(frame)
		bar := int(level * 60)
		if bar > 60 {
			bar = 60
		}
		fmt.Printf("\r[%-60s] %.3f", meterBar(bar), level)
	})
	<-ctx.Done()
	fmt.Println()
}

func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func meterBar(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '#'
	}
	return string(b)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server failed", "err", err)
	}
}
