// pkg/version/version.go - build information stamped in with -ldflags.

package version

import (
	"fmt"
	"io"
	"runtime"
)

// These values are private which ensures they can only be set with the build flags.
var (
	version   = "dev"
	branch    = "unknown"
	revision  = "unknown"
	buildDate = "unknown"
	appName   = "tweaker"
)

// Info is a structure with version build information about the current application.
type Info struct {
	Version   string `json:"version"`
	Branch    string `json:"branch"`
	Revision  string `json:"revision"`
	GoVersion string `json:"go_version"`
	BuildDate string `json:"build_date"`
}

// Version returns a structure with the current version information.
func Version() Info {
	return Info{
		Version:   version,
		Branch:    branch,
		Revision:  revision,
		GoVersion: runtime.Version(),
		BuildDate: buildDate,
	}
}

// String returns "<app> <version>".
func String() string {
	return fmt.Sprintf("%s %s", appName, version)
}

// Print writes the application name and detailed version information to w.
func Print(w io.Writer, full bool) {
	v := Version()
	fmt.Fprintf(w, "%s %s\n", appName, v.Version)
	if !full {
		return
	}
	fmt.Fprintf(w, "  branch: \t%s\n", v.Branch)
	fmt.Fprintf(w, "  revision: \t%s\n", v.Revision)
	fmt.Fprintf(w, "  build date: \t%s\n", v.BuildDate)
	fmt.Fprintf(w, "  go version: \t%s\n", v.GoVersion)
}
