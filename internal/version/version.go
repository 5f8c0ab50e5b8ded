package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X .../internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// BuildInfo is the JSON shape served by /healthz and `orchestrator version -o json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func Info() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: runtime.Version()}
}

func String() string {
	return fmt.Sprintf("llm-orchestrator version=%s commit=%s build_date=%s", Version, Commit, BuildDate)
}
