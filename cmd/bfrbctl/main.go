// Bfrbctl is the command-line client for monitoring and driving a running
// BFRB Sense pipeline. It talks to each tier's daemon over HTTP and
// WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/large-farva/bfrb-sense/internal/ctl"
)

func main() {
	var (
		wearableURL  = pflag.String("wearable", "http://127.0.0.1:8070", "wearabled URL")
		companionURL = pflag.String("companion", "http://127.0.0.1:8090", "companiond URL")
		mobileURL    = pflag.String("mobile", "http://127.0.0.1:8080", "mobiled URL")
		streamURL    = pflag.String("stream", "http://127.0.0.1:8082", "streamd status URL")
		jsonOut      = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter       = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter ack,relay)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	targets := ctl.Targets{
		"wearable":  *wearableURL,
		"companion": *companionURL,
		"mobile":    *mobileURL,
		"stream":    *streamURL,
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status", "health", "version":
		var tiers []string
		if tiers, err = targets.Select(subArgs); err != nil {
			break
		}
		switch cmd {
		case "status":
			err = ctl.Status(targets, tiers, *jsonOut)
		case "health":
			err = ctl.Health(targets, tiers, *jsonOut)
		default:
			err = ctl.VersionInfo(targets, tiers, *jsonOut)
		}

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.StringVar(&opts.Level, "level", "", "Filter by log level (debug, info, warn, error)")
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		var baseURL string
		if baseURL, err = targets.URL(tierArg(logFlags.Args())); err == nil {
			err = ctl.Logs(baseURL, opts)
		}

	case "entries":
		opts := ctl.EntriesOptions{JSON: *jsonOut}
		entryFlags := pflag.NewFlagSet("entries", pflag.ContinueOnError)
		entryFlags.StringVar(&opts.Date, "date", "", "Day to list (YYYY-MM-DD, default today)")
		entryFlags.BoolVar(&opts.Pending, "pending", false, "List detections not yet logged")
		_ = entryFlags.Parse(subArgs)
		err = ctl.Entries(*mobileURL, opts)

	case "settings":
		opts := ctl.SettingsOptions{JSON: *jsonOut}
		setFlags := pflag.NewFlagSet("settings", pflag.ContinueOnError)
		notifications := setFlags.Bool("notifications", true, "Enable or disable detection notifications")
		duration := setFlags.String("default-duration", "", "Default duration (HH:MM:SS or minutes)")
		_ = setFlags.Parse(subArgs)
		if setFlags.Changed("notifications") {
			opts.Notifications = notifications
		}
		if setFlags.Changed("default-duration") {
			opts.DefaultDuration = duration
		}
		err = ctl.Settings(*mobileURL, opts)

	// ── Control commands ──────────────────────────────────────────
	case "ack":
		err = ctl.Ack(*wearableURL, *jsonOut)

	case "connect":
		var url string
		if len(subArgs) > 0 {
			url = subArgs[0]
		}
		err = ctl.Connect(*mobileURL, url, *jsonOut)

	case "log-entry":
		opts := ctl.LogEntryOptions{JSON: *jsonOut}
		leFlags := pflag.NewFlagSet("log-entry", pflag.ContinueOnError)
		leFlags.StringVar(&opts.ID, "id", "", "Pending detection ID (omit to log a behaviour manually)")
		leFlags.StringVar(&opts.Behaviour, "behaviour", "", "Behaviour name")
		leFlags.StringVar(&opts.Location, "location", "", "Where it happened")
		leFlags.StringVar(&opts.Mood, "mood", "", "How you felt")
		leFlags.StringVar(&opts.Duration, "duration", "", "Duration (HH:MM:SS or minutes)")
		leFlags.StringVar(&opts.Timestamp, "at", "", "ISO-8601 time (default: detection time or now)")
		leFlags.BoolVar(&opts.Discard, "discard", false, "Discard the pending detection instead of saving")
		_ = leFlags.Parse(subArgs)
		err = ctl.LogEntry(*mobileURL, opts)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		var baseURL string
		if baseURL, err = targets.URL(tierArg(subArgs)); err == nil {
			err = ctl.Watch(baseURL, ctl.WatchOptions{
				Filter: *filter,
				JSON:   *jsonOut,
			})
		}

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// tierArg returns the tier named in args, defaulting to the wearable.
func tierArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "wearable"
}

func usage() {
	fmt.Print(`
  bfrbctl - BFRB Sense control CLI

  USAGE
    bfrbctl [flags] <command> [command-flags] [tier]

  TIERS
    wearable, companion, mobile, stream

  COMMANDS (query)
    status [tier...]    Show daemon state and per-tier pipeline details
    health [tier...]    Check that each daemon is reachable
    version [tier...]   Show CLI and daemon version information
    logs [tier]         Show recent daemon log messages
    entries             List behaviours logged on a day
    settings            Show or change mobile settings

  COMMANDS (control)
    ack                 Acknowledge the active alert on the wearable
    connect [URL]       Have the mobile client dial a stream hub
    log-entry           Save a pending detection (or a manual entry)

  COMMANDS (live)
    watch [tier]        Stream live events from a daemon (Ctrl-C to stop)

  GLOBAL FLAGS
        --wearable URL    wearabled URL  (default: http://127.0.0.1:8070)
        --companion URL   companiond URL (default: http://127.0.0.1:8090)
        --mobile URL      mobiled URL    (default: http://127.0.0.1:8080)
        --stream URL      streamd URL    (default: http://127.0.0.1:8082)
        --json            Output raw JSON instead of formatted text
        --filter TYPE     Event types to show in watch (comma-separated)

  COMMAND FLAGS
    logs:
        --level LEVEL       Filter by log level (debug, info, warn, error)
        --limit N           Limit number of log entries shown
        --tail              Stream live log events

    entries:
        --date YYYY-MM-DD   Day to list (default: today)
        --pending           List detections not yet logged

    settings:
        --notifications=BOOL     Enable or disable notifications
        --default-duration DUR   Default entry duration

    log-entry:
        --id ID             Pending detection to complete
        --behaviour NAME    Behaviour (default: Nail Biting)
        --location NAME     Location (default: Home)
        --mood NAME         Mood (default: Anxious)
        --duration DUR      HH:MM:SS or whole minutes
        --at TIME           ISO-8601 time of the behaviour
        --discard           Drop the pending detection instead

  EXAMPLES
    bfrbctl status
    bfrbctl status wearable
    bfrbctl --json status mobile
    bfrbctl watch wearable --filter decision,display,ack
    bfrbctl watch companion
    bfrbctl ack
    bfrbctl entries --pending
    bfrbctl log-entry --id 1b9d... --mood Bored --duration 00:02:30
    bfrbctl entries --date 2024-05-01
    bfrbctl settings --notifications=false
    bfrbctl connect ws://192.168.1.20:8081/
    bfrbctl logs companion --level warn --limit 20

`)
}
