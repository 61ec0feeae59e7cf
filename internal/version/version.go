package version

import "fmt"

var (
	// Version is the release tag, set with -ldflags at build time.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String is the one-line build description recorded with each run.
func String() string {
	return fmt.Sprintf("exclusion.report %s (%s, built %s)", Version, GitSHA, BuildTime)
}
