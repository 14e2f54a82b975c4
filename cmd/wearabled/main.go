// Wearabled runs the wearable tier of BFRB Sense.
//
// It samples the accelerometer, raises a haptic alert when the wrist holds
// the calibrated hand-to-face pose, and relays the user's acknowledgment to
// companiond. Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/bfrb-sense/internal/config"
	"github.com/large-farva/bfrb-sense/internal/wearable"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/bfrb/bfrb.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides wearable.bind)")
		peerURL    = pflag.String("peer", "", "Companion peer URL (overrides wearable.peer_url)")
		driver     = pflag.String("sensor", "", "Sensor driver: sim, serial, none (overrides sensor.driver)")
	)
	pflag.Parse()

	cfg, err := config.LoadOrDefault(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *bind != "" {
		cfg.Wearable.Bind = *bind
	}
	if *peerURL != "" {
		cfg.Wearable.PeerURL = *peerURL
	}
	if *driver != "" {
		cfg.Sensor.Driver = *driver
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := log.New(os.Stdout, "wearabled ", log.LstdFlags|log.Lmicroseconds)

	d, err := wearable.New(wearable.Options{
		Logger: logger,
		Cfg:    cfg,
		Bind:   cfg.Wearable.Bind,
	})
	if err != nil {
		logger.Fatalf("wearabled init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		logger.Fatalf("wearabled failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
