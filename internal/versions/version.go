// Package versions provides build and engine version helpers for the indexer.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknownStr = "unknown"

// Build information, set with -ldflags at release time
var (
	Version   = "dev"
	Commit    = unknownStr
	BuildDate = unknownStr
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the build information of the running binary
func GetVersionInfo() Info {
	return infoFrom(Version, Commit, BuildDate, readVCS())
}

func readVCS() map[string]string {
	vcs := map[string]string{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			vcs[s.Key] = s.Value
		}
	}
	return vcs
}

func infoFrom(version, commit, buildDate string, vcs map[string]string) Info {
	if version == "dev" {
		if commit == unknownStr && vcs["vcs.revision"] != "" {
			commit = vcs["vcs.revision"]
		}
		if buildDate == unknownStr && vcs["vcs.time"] != "" {
			buildDate = vcs["vcs.time"]
		}
		version = fmt.Sprintf("build-%.8s", commit)
	}
	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
