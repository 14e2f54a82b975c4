// Mobiled runs the mobile client tier of BFRB Sense.
//
// It listens for detection frames from companiond, posts a notification
// for each one, and saves the behaviours the user logs to the record
// store. Shutdown is handled gracefully on SIGINT or SIGTERM.
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
	"github.com/large-farva/bfrb-sense/internal/mobile"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/bfrb/bfrb.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides mobile.bind)")
		storeKind  = pflag.String("store", "", "Record store: file, nats, memory (overrides store.driver)")
	)
	pflag.Parse()

	cfg, err := config.LoadOrDefault(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *bind != "" {
		cfg.Mobile.Bind = *bind
	}
	if *storeKind != "" {
		cfg.Store.Driver = *storeKind
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := log.New(os.Stdout, "mobiled ", log.LstdFlags|log.Lmicroseconds)

	d, err := mobile.New(mobile.Options{
		Logger: logger,
		Cfg:    cfg,
		Bind:   cfg.Mobile.Bind,
	})
	if err != nil {
		logger.Fatalf("mobiled init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		logger.Fatalf("mobiled failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
