// Package main is the standalone client-side helper that attaches to a
// running avbstreamhandlerd's shared-memory video ring buffer from another
// process, mirroring the original source's separate video-bridge binary.
// It never creates the segment — only the daemon's stream-creation path
// does that via shmconn.Create — this binary only attaches as one more
// reader and drains frames.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avbcore/streamhandler/ringbuffer"
	"github.com/avbcore/streamhandler/shmconn"
	"github.com/sirupsen/logrus"
)

// CLIConfig is this binary's flag set: enough to attach to an existing
// named segment and nothing else — segment creation and sizing are the
// daemon's responsibility, not this client's.
type CLIConfig struct {
	baseDir     string
	name        string
	bufferSize  uint
	numBuffers  uint
	outPath     string
	readTimeout time.Duration
	logLevel    string
	help        bool
}

func parseCLIFlags() *CLIConfig {
	cfg := &CLIConfig{}
	flag.StringVar(&cfg.baseDir, "dir", shmconn.DefaultBaseDir, "directory the named segment lives under")
	flag.StringVar(&cfg.name, "name", "", "connection name (segment is <dir>/avb_<name>, required)")
	flag.UintVar(&cfg.bufferSize, "buffer-size", 0, "bytes per ring buffer slot, must match the creator (required)")
	flag.UintVar(&cfg.numBuffers, "num-buffers", 0, "number of ring buffer slots, must match the creator (required)")
	flag.StringVar(&cfg.outPath, "out", "", "file to write drained frames to (default: stdout)")
	flag.DurationVar(&cfg.readTimeout, "read-timeout", 500*time.Millisecond, "WaitRead poll interval")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.help, "help", false, "show help message")
	flag.Parse()
	return cfg
}

func printUsage() {
	fmt.Println("AVB video bridge client")
	fmt.Println()
	fmt.Println("Attaches to a running avbstreamhandlerd's named shared-memory video")
	fmt.Println("ring buffer as an additional reader and writes drained frames out.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s -name mystream -buffer-size 65536 -num-buffers 8 [options]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}

func validateCLIConfig(cfg *CLIConfig) error {
	if cfg.name == "" {
		return fmt.Errorf("-name is required")
	}
	if cfg.bufferSize == 0 || cfg.numBuffers == 0 {
		return fmt.Errorf("-buffer-size and -num-buffers are required and must match the creator")
	}
	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid -log-level %q: must be one of debug, info, warn, error", cfg.logLevel)
	}
	return nil
}

func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logrus.WithFields(logrus.Fields{"signal": sig.String()}).Info("received shutdown signal, detaching")
		cancel()
	}()
}

// drain reads and forwards frames from ring via readerIdx to out until ctx
// is cancelled, using the begin/end read-transaction pair.
func drain(ctx context.Context, ring *ringbuffer.Ring, readerIdx int, out io.Writer, pollInterval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := ring.WaitRead(readerIdx, 1, pollInterval); err != nil {
			continue
		}

		offset, n, err := ring.BeginAccess(ringbuffer.AccessRead, readerIdx, ring.NumBuffers())
		if err != nil {
			if err == ringbuffer.ErrWouldBlock {
				continue
			}
			return fmt.Errorf("avbvideobridge: begin read access: %w", err)
		}
		for i := uint32(0); i < n; i++ {
			if _, err := out.Write(ring.Buffer(offset + i)); err != nil {
				_ = ring.EndAccess(ringbuffer.AccessRead, readerIdx, n)
				return fmt.Errorf("avbvideobridge: write frame: %w", err)
			}
		}
		if err := ring.EndAccess(ringbuffer.AccessRead, readerIdx, n); err != nil {
			return fmt.Errorf("avbvideobridge: end read access: %w", err)
		}
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := parseCLIFlags()
	if cfg.help {
		printUsage()
		return 0
	}
	if err := validateCLIConfig(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Use -help for usage information.")
		return 1
	}

	level, _ := logrus.ParseLevel(cfg.logLevel)
	logrus.SetLevel(level)

	conn, err := shmconn.Attach(cfg.baseDir, cfg.name, uint32(cfg.bufferSize), uint32(cfg.numBuffers))
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "name": cfg.name}).Error("failed to attach to video ring buffer")
		return 1
	}
	defer conn.Detach()

	readerIdx, err := conn.Ring().AddReader(int32(os.Getpid()))
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("failed to register as a reader")
		return 1
	}
	defer conn.Ring().RemoveReader(readerIdx)

	out := io.Writer(os.Stdout)
	if cfg.outPath != "" {
		f, err := os.Create(cfg.outPath)
		if err != nil {
			logrus.WithFields(logrus.Fields{"error": err, "path": cfg.outPath}).Error("failed to open output file")
			return 1
		}
		defer f.Close()
		out = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	logrus.WithFields(logrus.Fields{"name": cfg.name, "dir": cfg.baseDir}).Info("avb video bridge attached")
	if err := drain(ctx, conn.Ring(), readerIdx, out, cfg.readTimeout); err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("drain loop failed")
		return 1
	}
	logrus.Info("avb video bridge detached")
	return 0
}
