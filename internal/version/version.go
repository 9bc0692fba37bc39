// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata for `labkit version` and the user agent.
func String() string {
	return fmt.Sprintf("labkit %s (commit %s, built %s)", Version, Commit, Date)
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	return "labkit/" + Version
}
