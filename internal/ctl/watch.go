package ctl

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
}

// wsURL turns a daemon base URL into its /ws endpoint.
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// the terminal in a human-readable format until interrupted.
func Watch(baseURL string, opts WatchOptions) error {
	endpoint, err := wsURL(baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Println()
		fmt.Printf("  %s %s\n", colorize(green, "connected"), colorize(dim, endpoint))
		if len(opts.Filter) > 0 {
			fmt.Printf("  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Println(rule(50))
		fmt.Println()
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !wanted(msg, filterSet) {
				continue
			}
			if opts.JSON {
				fmt.Println(string(msg))
			} else {
				renderEvent(msg)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		if !opts.JSON {
			fmt.Println()
			fmt.Println(colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

// wanted applies the event type filter. Unparseable messages always pass.
func wanted(msg []byte, filter map[string]bool) bool {
	if len(filter) == 0 {
		return true
	}
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		return true
	}
	return filter[ev.Type]
}

// renderEvent parses a JSON event and prints it in a human-friendly format.
// Falls back to raw JSON for unrecognized event types.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Printf("  %s\n", string(raw))
		return
	}

	evType := str(ev["type"])
	ts := colorize(dim, formatEventTime(ev))

	switch evType {
	case "heartbeat":
		state := str(ev["state"])
		uptime, _ := ev["uptime_seconds"].(float64)
		fmt.Printf("  %s %s  %s  up %s\n",
			ts,
			colorize(dim, "heartbeat"),
			colorize(stateColor(state), state),
			colorize(dim, formatDuration(time.Duration(uptime)*time.Second)),
		)

	case "state":
		from, to := str(ev["from"]), str(ev["to"])
		fmt.Printf("  %s %s  %s %s %s\n",
			ts,
			colorize(bold, "STATE"),
			colorize(stateColor(from), from),
			colorize(dim, "->"),
			colorize(stateColor(to), to),
		)

	case "log":
		component := str(ev["component"])
		src := ""
		if component != "" {
			src = colorize(dim, "["+component+"] ")
		}
		fmt.Printf("  %s %s  %s%s\n", ts, formatLogLevel(str(ev["level"])), src, str(ev["message"]))

	case "decision":
		pct, _ := ev["percent_in"].(float64)
		count, _ := ev["count"].(float64)
		n, _ := ev["len"].(float64)
		verdict := colorize(dim, "clear")
		if t, _ := ev["triggered"].(bool); t {
			verdict = colorize(yellow, "TRIGGERED")
		}
		fmt.Printf("  %s %s  [%s] %3.0f%%  %d/%d  %s\n",
			ts, colorize(cyan, "decision"), percentBar(pct, 80, 20), pct, int(count), int(n), verdict)

	case "display":
		ack := ""
		if shown, _ := ev["ack_shown"].(bool); shown {
			ack = colorize(yellow, "  [acknowledge]")
		}
		haptics := ""
		if h := str(ev["haptics"]); h != "" {
			haptics = colorize(dim, "  vibrating: "+h)
		}
		fmt.Printf("  %s %s  %q%s%s\n", ts, colorize(cyan, "display "), str(ev["reminder"]), ack, haptics)

	case "ack":
		outcome := colorize(green, "relayed")
		if r, _ := ev["relayed"].(bool); !r {
			outcome = colorize(red, "not relayed")
		}
		fmt.Printf("  %s %s  %s  %s\n", ts, colorize(bold, "ACK     "), str(ev["payload"]), outcome)

	case "link":
		state := str(ev["state"])
		fmt.Printf("  %s %s  %s  %s\n", ts, colorize(cyan, "link    "), padRight(str(ev["hop"]), 22), colorize(stateColor(state), state))

	case "relay":
		outcome := colorize(green, "forwarded")
		if f, _ := ev["forwarded"].(bool); !f {
			outcome = colorize(red, "dropped")
			if e := str(ev["error"]); e != "" {
				outcome += colorize(dim, " ("+e+")")
			}
		}
		fmt.Printf("  %s %s  %s  %s\n", ts, colorize(cyan, "relay   "), str(ev["text"]), outcome)

	case "detection":
		bytes, _ := ev["bytes"].(float64)
		detail := fmt.Sprintf("%d-byte frame", int(bytes))
		if ms, ok := ev["millis"].(float64); ok && ms != 0 {
			detail += " @ " + time.UnixMilli(int64(ms)).Local().Format("15:04:05.000")
		}
		fmt.Printf("  %s %s  %s  %s\n", ts, colorize(bold, "DETECTED"), detail, colorize(dim, "entry "+str(ev["entry_id"])))

	case "notification":
		fmt.Printf("  %s %s  %s: %s\n", ts, colorize(yellow, "notify  "), colorize(bold, str(ev["title"])), str(ev["body"]))

	case "entry":
		fmt.Printf("  %s %s  %s on %s  %s\n", ts, colorize(green, "saved   "), str(ev["behaviour"]), str(ev["date"]), colorize(dim, str(ev["key"])))

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Printf("  %s\n", string(raw))
			return
		}
		fmt.Printf("  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "        "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		if len(tsRaw) > 10 {
			return tsRaw[:10]
		}
		return tsRaw
	}
	return t.Local().Format("15:04:05")
}
