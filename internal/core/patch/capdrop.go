// Package patch rewrites compose file text for the SearXNG first-run
// workaround. SearXNG writes its own uwsgi.ini on first start, which the
// hardened cap_drop directive prevents, so the directive is commented out
// for exactly one run and restored afterwards.
//
// All transforms are pure. Reading and writing the compose file is the
// adapter's job.
package patch

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// The active directive and the sentinel it is swapped for. The sentinel
// doubles as the marker that a previous run disabled the directive, so the
// two literals must round-trip exactly.
const (
	CapDropDirective = "cap_drop: - ALL"
	CapDropDisabled  = "# cap_drop: - ALL  # Temporarily commented out for first run"
)

// DisableCapDrop comments out the hardening directive ahead of a first run.
// It reports false when the directive is not present in active form. Content
// already carrying the sentinel is left alone: the sentinel embeds the
// directive text, and replacing through it would stack comment markers on
// every consecutive first run.
func DisableCapDrop(content string) (string, bool) {
	if strings.Contains(content, CapDropDisabled) {
		return content, false
	}
	if !strings.Contains(content, CapDropDirective) {
		return content, false
	}
	return strings.ReplaceAll(content, CapDropDirective, CapDropDisabled), true
}

// EnableCapDrop restores the hardening directive once the service has
// initialized. It reports false when no sentinel is present.
func EnableCapDrop(content string) (string, bool) {
	if !strings.Contains(content, CapDropDisabled) {
		return content, false
	}
	return strings.ReplaceAll(content, CapDropDisabled, CapDropDirective), true
}

// ForFirstRun picks the right transform for the detected state: disable
// ahead of a first run, restore otherwise. The returned bool reports
// whether the content changed.
func ForFirstRun(content string, firstRun bool) (string, bool) {
	if firstRun {
		return DisableCapDrop(content)
	}
	return EnableCapDrop(content)
}

// CheckYAML verifies that content still parses as a YAML document. Patched
// compose text is rejected rather than written when the transform somehow
// produced garbage.
func CheckYAML(content string) error {
	var doc map[string]any
	return yaml.Unmarshal([]byte(content), &doc)
}
