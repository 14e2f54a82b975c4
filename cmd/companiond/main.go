// Companiond runs the companion host of BFRB Sense.
//
// The wearable connects to its /peer endpoint; every acknowledgment
// timestamp it receives is encoded as an 8-byte frame and forwarded to
// mobiled. Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/bfrb-sense/internal/companion"
	"github.com/large-farva/bfrb-sense/internal/config"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/bfrb/bfrb.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides companion.bind)")
		mobileURL  = pflag.String("mobile", "", "Mobile frame URL (overrides companion.mobile_url)")
	)
	pflag.Parse()

	cfg, err := config.LoadOrDefault(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *bind != "" {
		cfg.Companion.Bind = *bind
	}
	if *mobileURL != "" {
		cfg.Companion.MobileURL = *mobileURL
	}

	logger := log.New(os.Stdout, "companiond ", log.LstdFlags|log.Lmicroseconds)

	d := companion.New(companion.Options{
		Logger: logger,
		Cfg:    cfg,
		Bind:   cfg.Companion.Bind,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		logger.Fatalf("companiond failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
