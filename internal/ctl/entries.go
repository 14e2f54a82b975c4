package ctl

import (
	"fmt"
	"net/url"
	"time"
)

type entry struct {
	Behaviour string `json:"behaviour"`
	Location  string `json:"location"`
	Mood      string `json:"mood"`
	Timestamp string `json:"timestamp"`
	Duration  string `json:"duration"`
	Date      string `json:"date"`
}

type record struct {
	Key   string `json:"key"`
	Entry entry  `json:"entry"`
}

// EntriesOptions configures the entries command.
type EntriesOptions struct {
	Date    string // YYYY-MM-DD, empty for today
	Pending bool   // list unsaved detections instead
	JSON    bool
}

// Entries lists the behaviours logged on one day, or the pending
// detections still waiting to be logged.
func Entries(baseURL string, opts EntriesOptions) error {
	if opts.Pending {
		return pending(baseURL, opts.JSON)
	}

	path := "/api/entries"
	if opts.Date != "" {
		path += "?date=" + url.QueryEscape(opts.Date)
	}
	var day struct {
		Date          string   `json:"date"`
		Entries       []record `json:"entries"`
		Count         int      `json:"count"`
		TotalSeconds  int      `json:"total_seconds"`
		TotalDuration string   `json:"total_duration"`
	}
	if err := getJSON(baseURL, path, &day); err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(day)
	}

	fmt.Println()
	fmt.Println(header("  BEHAVIOURS ON " + day.Date))
	fmt.Println(rule(60))
	if day.Count == 0 {
		fmt.Println("  Nothing logged.")
		fmt.Println()
		return nil
	}
	t := newTable("  ", "Time", "Behaviour", "Location", "Mood", "Duration")
	for _, r := range day.Entries {
		t.row(clock(r.Entry.Timestamp), r.Entry.Behaviour, r.Entry.Location, r.Entry.Mood, r.Entry.Duration)
	}
	t.flush()
	fmt.Println()
	fmt.Printf("  %-16s %d\n", colorize(dim, "Total count:"), day.Count)
	fmt.Printf("  %-16s %s\n", colorize(dim, "Total duration:"), day.TotalDuration)
	fmt.Println()
	return nil
}

func pending(baseURL string, jsonOutput bool) error {
	var resp struct {
		Pending []struct {
			ID    string `json:"id"`
			Entry entry  `json:"entry"`
		} `json:"pending"`
	}
	if err := getJSON(baseURL, "/api/pending", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  PENDING DETECTIONS"))
	fmt.Println(rule(60))
	if len(resp.Pending) == 0 {
		fmt.Println("  None.")
		fmt.Println()
		return nil
	}
	t := newTable("  ", "ID", "Detected")
	for _, p := range resp.Pending {
		t.row(p.ID, p.Entry.Date+" "+clock(p.Entry.Timestamp))
	}
	t.flush()
	fmt.Println()
	return nil
}

// LogEntryOptions are the user's choices for one entry.
type LogEntryOptions struct {
	ID        string
	Behaviour string
	Location  string
	Mood      string
	Duration  string
	Timestamp string
	Discard   bool
	JSON      bool
}

// LogEntry completes a pending detection (or logs a manual one when ID is
// empty) and saves it. With Discard it drops the pending detection instead.
func LogEntry(baseURL string, opts LogEntryOptions) error {
	if opts.Discard {
		if opts.ID == "" {
			return fmt.Errorf("--discard needs --id")
		}
		var resp map[string]any
		if err := deleteJSON(baseURL, "/api/pending?id="+url.QueryEscape(opts.ID), &resp); err != nil {
			return err
		}
		if opts.JSON {
			return printJSON(resp)
		}
		fmt.Printf("\n  %s  %s\n\n", colorize(yellow, "DISCARDED"), opts.ID)
		return nil
	}

	body := map[string]string{}
	for k, v := range map[string]string{
		"id":        opts.ID,
		"behaviour": opts.Behaviour,
		"location":  opts.Location,
		"mood":      opts.Mood,
		"duration":  opts.Duration,
		"timestamp": opts.Timestamp,
	} {
		if v != "" {
			body[k] = v
		}
	}

	var resp struct {
		OK     bool   `json:"ok"`
		Record record `json:"record"`
	}
	if err := postJSON(baseURL, "/api/entries", body, &resp); err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(resp)
	}

	e := resp.Record.Entry
	fmt.Println()
	fmt.Printf("  %s  %s at %s, feeling %s, for %s\n", colorize(green, "SAVED"), e.Behaviour, e.Location, e.Mood, e.Duration)
	fmt.Printf("  %s\n", colorize(dim, resp.Record.Key))
	fmt.Println()
	return nil
}

// clock renders an entry timestamp as local HH:MM:SS.
func clock(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04:05")
}
