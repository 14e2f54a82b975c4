package ctl

import (
	"fmt"
)

// Ack presses the acknowledgment control on the wearable.
func Ack(baseURL string, jsonOutput bool) error {
	var resp struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
		Error   string `json:"error"`
		Ack     *struct {
			Payload string `json:"payload"`
			Relayed bool   `json:"relayed"`
		} `json:"ack"`
	}
	if err := postJSON(baseURL, "/api/ack", nil, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	switch {
	case !resp.OK:
		fmt.Printf("  %s  %s\n", colorize(red, "FAILED"), resp.Error)
	case resp.Ack != nil && resp.Ack.Relayed:
		fmt.Printf("  %s  %s relayed to companion\n", colorize(green, "ACKNOWLEDGED"), resp.Ack.Payload)
	default:
		fmt.Printf("  %s  %s\n", colorize(yellow, "ACKNOWLEDGED"), resp.Message)
	}
	fmt.Println()
	return nil
}

// Connect asks the mobile client to dial a stream hub. An empty url uses
// the client's configured default.
func Connect(baseURL, url string, jsonOutput bool) error {
	var body any
	if url != "" {
		body = map[string]string{"url": url}
	}
	var resp struct {
		OK    bool   `json:"ok"`
		URL   string `json:"url"`
		State string `json:"state"`
	}
	if err := postJSON(baseURL, "/api/connect", body, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}
	fmt.Println()
	fmt.Printf("  %s  %s  %s\n", colorize(green, "CONNECTED"), resp.URL, colorize(stateColor(resp.State), resp.State))
	fmt.Println()
	return nil
}
