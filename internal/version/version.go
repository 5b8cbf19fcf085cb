// Package version holds build metadata injected with
// -ldflags "-X github.com/vshulcz/metricsnap/internal/version.Version=...".
package version

import (
	"fmt"
	"io"
)

var (
	Version string
	Date    string
	Commit  string
)

func na(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// String returns a one-line summary for logs.
func String() string {
	return fmt.Sprintf("%s (%s, %s)", na(Version), na(Commit), na(Date))
}

// Write prints the build version, date and commit, one per line.
func Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Build version: %s\nBuild date: %s\nBuild commit: %s\n",
		na(Version), na(Date), na(Commit))
	return err
}
