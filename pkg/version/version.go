// Package version reports ragchat build information.
package version

import (
	"fmt"
	"runtime"
)

// Version is injected at build time:
//
//	-ldflags "-X github.com/briany/genai-rag-chatbot/pkg/version.Version=1.2.3"
var Version = "dev"

var (
	// Commit is the short git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is version information for JSON output and the HTTP banner.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line summary of the build.
func String() string {
	return fmt.Sprintf("ragchat %s (commit: %s, built: %s, go: %s)", Version, Commit, Date, GoVersion)
}

// Short returns the version alone.
func Short() string {
	return Version
}

func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
