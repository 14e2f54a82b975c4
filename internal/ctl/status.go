package ctl

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Tiers lists the daemons in pipeline order.
var Tiers = []string{"wearable", "companion", "mobile", "stream"}

// Targets maps a tier name to its daemon base URL.
type Targets map[string]string

// URL returns the base URL for tier.
func (t Targets) URL(tier string) (string, error) {
	u, ok := t[tier]
	if !ok || u == "" {
		return "", fmt.Errorf("unknown tier %q (want one of %s)", tier, strings.Join(Tiers, ", "))
	}
	return strings.TrimRight(u, "/"), nil
}

// Select resolves the tiers named in args, or every tier when args is
// empty.
func (t Targets) Select(args []string) ([]string, error) {
	if len(args) == 0 {
		return Tiers, nil
	}
	for _, a := range args {
		if _, err := t.URL(a); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// Status fetches /api/status from each tier and prints a summary. An
// unreachable tier is reported and does not stop the others.
func Status(targets Targets, tiers []string, jsonOutput bool) error {
	all := make(map[string]any, len(tiers))
	for _, tier := range tiers {
		baseURL, err := targets.URL(tier)
		if err != nil {
			return err
		}
		var s map[string]any
		if err := getJSON(baseURL, "/api/status", &s); err != nil {
			if jsonOutput {
				all[tier] = map[string]any{"error": err.Error()}
				continue
			}
			fmt.Println()
			fmt.Println(header("  " + strings.ToUpper(tier)))
			fmt.Println(rule(38))
			fmt.Printf("  %-16s %s\n", colorize(dim, "Host:"), baseURL)
			fmt.Printf("  %-16s %s\n", colorize(dim, "State:"), colorize(red, "unreachable"))
			continue
		}
		if jsonOutput {
			all[tier] = s
			continue
		}
		printStatus(tier, baseURL, s)
	}
	if jsonOutput {
		return printJSON(all)
	}
	fmt.Println()
	return nil
}

func printStatus(tier, baseURL string, s map[string]any) {
	name := str(s["name"])
	state := str(s["state"])
	uptime, _ := s["uptime_seconds"].(float64)

	fmt.Println()
	fmt.Println(header("  " + strings.ToUpper(tier) + "  " + colorize(dim, name)))
	fmt.Println(rule(38))
	line("Host:", baseURL)
	line("State:", colorize(stateColor(state), state))
	line("Uptime:", formatDuration(time.Duration(uptime)*time.Second))
	line("Watchers:", fmt.Sprint(s["ws_clients"]))

	switch tier {
	case "wearable":
		sess := obj(s["session"])
		alertState := str(sess["alert_state"])
		line("Alert:", colorize(stateColor(alertState), alertState))
		line("Sensor:", fmt.Sprintf("%s (enabled: %v)", str(s["sensor"]), sess["sensor_enabled"]))
		line("Window:", fmt.Sprintf("%v/%v samples", sess["window_len"], sess["window_cap"]))
		last := obj(sess["last_decision"])
		pct, _ := last["percent_in"].(float64)
		threshold, _ := s["threshold"].(float64)
		line("In range:", fmt.Sprintf("[%s] %3.0f%%", percentBar(pct, threshold, 20), pct))
		line("Alerts/acks:", fmt.Sprintf("%v / %v", sess["alerts"], sess["acks"]))
		display := obj(s["display"])
		line("Reminder:", str(display["reminder"]))
		peer := str(s["peer_state"])
		line("Companion:", colorize(stateColor(peer), peer)+"  "+colorize(dim, str(s["peer_url"])))
		stats := obj(s["peer_stats"])
		line("Relayed:", fmt.Sprintf("%v sent, %v dropped", stats["sent"], stats["dropped"]))

	case "companion":
		mobile := str(s["mobile_state"])
		line("Wearables:", fmt.Sprint(s["peers"]))
		line("Mobile:", colorize(stateColor(mobile), mobile)+"  "+colorize(dim, str(s["mobile_url"])))
		stats := obj(s["mobile_stats"])
		line("Frames:", fmt.Sprintf("%v forwarded, %v dropped, %v reconnects",
			stats["forwarded"], stats["dropped"], stats["reconnects"]))

	case "mobile":
		sock := str(s["socket_state"])
		line("Socket:", colorize(stateColor(sock), sock))
		stats := obj(s["socket_stats"])
		line("Frames:", fmt.Sprintf("%v (last %s)", stats["frames"], orNone(str(stats["last_frame"]))))
		line("Pending:", fmt.Sprint(s["pending"]))
		line("Notified:", fmt.Sprint(s["notifications"]))
		line("Store:", str(s["store"])+" "+colorize(dim, str(s["store_path"])))
		if disk := obj(s["disk"]); disk != nil {
			avail, _ := disk["available_bytes"].(float64)
			total, _ := disk["total_bytes"].(float64)
			line("Disk:", fmt.Sprintf("%s free of %s", formatBytes(int64(avail)), formatBytes(int64(total))))
		}

	case "stream":
		sides := obj(s["sides"])
		keys := make([]string, 0, len(sides))
		for k := range sides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			side := obj(sides[k])
			line(k+":", fmt.Sprintf("connected=%v received=%v forwarded=%v dropped=%v",
				side["connected"], side["received"], side["forwarded"], side["dropped"]))
		}
	}
}

func line(label, value string) {
	fmt.Printf("  %-16s %s\n", colorize(dim, label), value)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
