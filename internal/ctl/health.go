package ctl

import (
	"fmt"
)

// Health checks daemon liveness via GET /healthz on each tier. It returns
// an error if any tier is unhealthy.
func Health(targets Targets, tiers []string, jsonOutput bool) error {
	results := make(map[string]any, len(tiers))
	unhealthy := 0

	if !jsonOutput {
		fmt.Println()
	}
	for _, tier := range tiers {
		baseURL, err := targets.URL(tier)
		if err != nil {
			return err
		}
		status, _, err := getRaw(baseURL, "/healthz")
		healthy := err == nil && status == 200
		if !healthy {
			unhealthy++
		}

		if jsonOutput {
			r := map[string]any{"healthy": healthy, "url": baseURL}
			if err != nil {
				r["error"] = err.Error()
			}
			results[tier] = r
			continue
		}

		label := padRight(tier, 10)
		switch {
		case healthy:
			fmt.Printf("  %s  %s reachable at %s\n", colorize(green, "HEALTHY  "), label, colorize(dim, baseURL))
		case err != nil:
			fmt.Printf("  %s  %s %s\n", colorize(red, "UNHEALTHY"), label, colorize(dim, err.Error()))
		default:
			fmt.Printf("  %s  %s returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), label, status, colorize(dim, baseURL))
		}
	}

	if jsonOutput {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		fmt.Println()
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d tiers unhealthy", unhealthy, len(tiers))
	}
	return nil
}
