// Streamd runs the optional stream hub between companiond and a mobile
// client on another host. Frames from the device side are passed to the
// client side and back, dropped when the other side is not connected.
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
	"github.com/large-farva/bfrb-sense/internal/streamhub"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/bfrb/bfrb.toml", "Path to config TOML")
		deviceBind = pflag.String("device", "", "Device-side bind address (overrides stream.device_bind)")
		clientBind = pflag.String("client", "", "Client-side bind address (overrides stream.client_bind)")
		statusBind = pflag.String("bind", "", "Status HTTP bind address (overrides stream.status_bind)")
	)
	pflag.Parse()

	cfg, err := config.LoadOrDefault(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *deviceBind != "" {
		cfg.Stream.DeviceBind = *deviceBind
	}
	if *clientBind != "" {
		cfg.Stream.ClientBind = *clientBind
	}
	if *statusBind != "" {
		cfg.Stream.StatusBind = *statusBind
	}

	logger := log.New(os.Stdout, "streamd ", log.LstdFlags|log.Lmicroseconds)

	d := streamhub.NewDaemon(streamhub.Options{Logger: logger, Cfg: cfg})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		logger.Fatalf("streamd failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
