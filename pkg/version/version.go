// Package version carries build metadata set with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// UserAgent identifies eco-go in outbound HTTP requests.
func UserAgent() string {
	return "eco-go/" + Version
}

func GetVersionInfo() string {
	return fmt.Sprintf("eco-go version %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildTime, runtime.Version())
}
