package ctl

import (
	"fmt"
	"strconv"
)

// SettingsOptions configures the settings command. Nil fields are left
// unchanged; with none set the current settings are shown.
type SettingsOptions struct {
	Notifications   *bool
	DefaultDuration *string
	JSON            bool
}

// Settings shows or updates the mobile client's settings.
func Settings(baseURL string, opts SettingsOptions) error {
	var s struct {
		Notifications   bool   `json:"notifications"`
		DefaultDuration string `json:"default_duration"`
	}

	if opts.Notifications == nil && opts.DefaultDuration == nil {
		if err := getJSON(baseURL, "/api/settings", &s); err != nil {
			return err
		}
	} else {
		body := map[string]any{}
		if opts.Notifications != nil {
			body["notifications"] = *opts.Notifications
		}
		if opts.DefaultDuration != nil {
			body["default_duration"] = *opts.DefaultDuration
		}
		if err := postJSON(baseURL, "/api/settings", body, &s); err != nil {
			return err
		}
	}

	if opts.JSON {
		return printJSON(s)
	}

	fmt.Println()
	fmt.Println(header("  MOBILE SETTINGS"))
	fmt.Println(rule(38))
	fmt.Printf("    %-20s %s\n", colorize(dim, "notifications:"), strconv.FormatBool(s.Notifications))
	fmt.Printf("    %-20s %s\n", colorize(dim, "default_duration:"), s.DefaultDuration)
	fmt.Println()
	return nil
}
