package ctl

import (
	"fmt"
)

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	GoVersion = "unknown"
)

type daemonVersion struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	BuiltAt   string `json:"built_at"`
}

// VersionInfo shows the CLI version and the version reported by each
// tier's GET /api/version.
func VersionInfo(targets Targets, tiers []string, jsonOutput bool) error {
	daemons := make(map[string]any, len(tiers))
	if !jsonOutput {
		fmt.Println()
		fmt.Println(header("  BFRB SENSE VERSION"))
		fmt.Println(rule(38))
		fmt.Printf("  %-12s %s\n", colorize(dim, "CLI:"), Version+" ("+GoVersion+")")
	}

	for _, tier := range tiers {
		baseURL, err := targets.URL(tier)
		if err != nil {
			return err
		}
		var v daemonVersion
		err = getJSON(baseURL, "/api/version", &v)

		if jsonOutput {
			if err != nil {
				daemons[tier] = map[string]any{"error": err.Error()}
			} else {
				daemons[tier] = v
			}
			continue
		}
		label := colorize(dim, padRight(tier+":", 12))
		if err != nil {
			fmt.Printf("  %s %s\n", label, colorize(red, "unreachable: "+err.Error()))
			continue
		}
		fmt.Printf("  %s %s (%s), built %s\n", label, v.Version, v.GoVersion, v.BuiltAt)
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"cli":     map[string]any{"version": Version, "go_version": GoVersion},
			"daemons": daemons,
		})
	}
	fmt.Println()
	return nil
}
