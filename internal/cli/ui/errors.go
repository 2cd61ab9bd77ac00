package ui

import (
	"errors"
	"strings"

	"github.com/fatih/color"

	"github.com/logiflow/logiflow/internal/apierr"
)

// FormatStartupError renders a boot failure with the stage that caused
// it and a hint for fixing it. Non-startup errors render as a plain
// error line.
//
// Example output:
//
//	✗ STARTUP FAILED (database)
//	  database unreachable: dial tcp 127.0.0.1:5432: connection refused
//
//	  → Check database.url in logiflow.yml or LOGIFLOW_DATABASE_URL
func FormatStartupError(err error, noColor bool) string {
	headerColor := color.New(color.FgRed, color.Bold)
	bodyColor := color.New(color.FgRed)
	hintColor := color.New(color.FgCyan)
	if noColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
		hintColor.DisableColor()
	}

	var b strings.Builder

	var startup *apierr.StartupError
	if !errors.As(err, &startup) {
		headerColor.Fprintf(&b, "✗ %v\n", err)
		return b.String()
	}

	headerColor.Fprintf(&b, "✗ STARTUP FAILED (%s)\n", startup.Stage)
	bodyColor.Fprintf(&b, "  %v\n", startup.Err)

	if hint := stageHint(startup.Stage); hint != "" {
		b.WriteString("\n")
		hintColor.Fprintf(&b, "  → %s\n", hint)
	}
	return b.String()
}

// stageHint suggests the most likely fix per boot stage.
func stageHint(stage string) string {
	switch stage {
	case "config":
		return "Check logiflow.yml (run 'logiflow init' to scaffold one)"
	case "database":
		return "Check database.url in logiflow.yml or LOGIFLOW_DATABASE_URL"
	case "cache":
		return "Check redis.addr, or disable caching with cache.enabled: false"
	case "authz":
		return "Check authz.policy_file; remove it to use the embedded policy"
	case "catalog", "routes", "graph":
		return "Entity descriptor problem; the message above names the entity"
	default:
		return ""
	}
}
