package version

import "fmt"

// Build information, overridden at link time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info holds build metadata reported by the status endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}
}

// String returns a single-line rendering of the build information.
func String() string {
	return fmt.Sprintf("sentinel-backend %s (%s, %s)", Version, GitCommit, BuildDate)
}
