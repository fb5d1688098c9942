// Package main is the minimal process bootstrap for the AVB stream handler
// core: it wires a control.Engine to a pair of raw-socket NIC devices and
// runs it until signalled to stop. It is not the registry-driven
// configuration front-end (that integration point stays an external
// collaborator, same as the daemon binary that doc.go names); this binary
// exists so the module ships something runnable, the same role the
// teacher's testnet/cmd/main.go plays for toxcore.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avbcore/streamhandler/control"
	"github.com/avbcore/streamhandler/nic"
	"github.com/sirupsen/logrus"
)

// CLIConfig holds the handful of flags this bootstrap understands. A real
// deployment drives control.Config from its own registry; these flags only
// cover what's needed to open the NIC devices and pick a log level.
type CLIConfig struct {
	ifaceName    string
	classBIface  string
	useShaper    bool
	discardAfter time.Duration
	logLevel     string
	help         bool
}

func parseCLIFlags() *CLIConfig {
	cfg := &CLIConfig{}
	flag.StringVar(&cfg.ifaceName, "iface", "", "network interface to bind class A tx/rx raw sockets to (required)")
	flag.StringVar(&cfg.classBIface, "iface-b", "", "optional interface for the class B transmit sequencer (the same name as -iface shares its socket; empty runs without a class B sequencer)")
	flag.BoolVar(&cfg.useShaper, "shaper", false, "enable the credit-based shaper (cXmitUseShaper)")
	flag.DurationVar(&cfg.discardAfter, "rx-discard-after", 0, "discard received packets older than this presentation-time age (0 disables)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.help, "help", false, "show help message")
	flag.Parse()
	return cfg
}

func printUsage() {
	fmt.Println("AVB Stream Handler daemon")
	fmt.Println()
	fmt.Println("Starts the control engine's receive worker and transmit sequencer(s)")
	fmt.Println("against a network interface and runs until interrupted. Stream")
	fmt.Println("creation is driven by whatever configuration front-end embeds this")
	fmt.Println("module's control.Engine; this binary alone brings up no streams.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s -iface eth0 [options]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}

func validateCLIConfig(cfg *CLIConfig) error {
	if cfg.ifaceName == "" {
		return fmt.Errorf("-iface is required")
	}
	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid -log-level %q: must be one of debug, info, warn, error", cfg.logLevel)
	}
	return nil
}

// systemClockSource is a PtpSource fallback for standalone operation when no
// real gPTP stack is wired in. PTP synthesis is explicitly out of scope for
// this module (spec's own non-goal); a deployment with a real grandmaster
// substitutes its own clock.PtpSource implementation here instead.
type systemClockSource struct{}

func (systemClockSource) Now() uint64          { return uint64(time.Now().UnixNano()) }
func (systemClockSource) EpochCounter() uint64 { return 0 }

func ifIndex(name string) (int, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return 0, fmt.Errorf("resolve interface %q: %w", name, err)
	}
	return iface.Index, nil
}

func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logrus.WithFields(logrus.Fields{"signal": sig.String()}).Info("received shutdown signal, stopping engine")
		cancel()
	}()
}

func buildOptions(cfg *CLIConfig) (*control.Options, []*nic.RawSocket, error) {
	idx, err := ifIndex(cfg.ifaceName)
	if err != nil {
		return nil, nil, err
	}
	rx, err := nic.OpenRawSocket(idx)
	if err != nil {
		return nil, nil, fmt.Errorf("open rx/tx-a raw socket on %s: %w", cfg.ifaceName, err)
	}
	sockets := []*nic.RawSocket{rx}

	opts := control.NewOptions()
	opts.Config.InterfaceName = cfg.ifaceName
	opts.Config.TxUseShaper = cfg.useShaper
	opts.Config.RxDiscardAfter = cfg.discardAfter
	opts.Ptp = systemClockSource{}
	opts.Rx = rx
	opts.TxA = rx

	if cfg.classBIface != "" && cfg.classBIface != cfg.ifaceName {
		bIdx, err := ifIndex(cfg.classBIface)
		if err != nil {
			rx.Close()
			return nil, nil, err
		}
		txB, err := nic.OpenRawSocket(bIdx)
		if err != nil {
			rx.Close()
			return nil, nil, fmt.Errorf("open tx-b raw socket on %s: %w", cfg.classBIface, err)
		}
		sockets = append(sockets, txB)
		opts.TxB = txB
	} else if cfg.classBIface == cfg.ifaceName {
		opts.TxB = rx
	}

	return opts, sockets, nil
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

	opts, sockets, err := buildOptions(cfg)
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("failed to open NIC devices")
		return 1
	}
	defer func() {
		for _, s := range sockets {
			_ = s.Close()
		}
	}()

	engine, err := control.New(opts)
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("failed to construct control engine")
		return 1
	}
	engine.OnEvent(func(ev control.Event) {
		logrus.WithFields(logrus.Fields{
			"kind":      ev.Kind.String(),
			"stream_id": ev.StreamID,
			"class":     ev.Class,
		}).Info("avb stream handler event")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	logrus.WithFields(logrus.Fields{"iface": cfg.ifaceName}).Info("avb stream handler daemon starting")
	if err := engine.Run(ctx); err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("engine run failed")
		engine.Stop()
		return 1
	}
	engine.Stop()
	logrus.Info("avb stream handler daemon stopped")
	return 0
}
