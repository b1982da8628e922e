// Package version holds build metadata, stamped with -ldflags -X.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build metadata as reported by `studysync version`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go"`
	Platform  string `json:"platform"`
}

// Current returns the metadata of the running binary.
func Current() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// IsDev reports whether this is an unstamped source build.
func IsDev() bool { return Version == "dev" }

// Full returns the one-line version string.
func Full() string {
	if IsDev() {
		return "studysync version dev (built from source)"
	}
	return "studysync version " + Version + " (" + Commit + ", " + Date + ")"
}

// UserAgent is sent with every backend request.
func UserAgent() string {
	return "studysync-cli/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
