// Package version exposes build metadata stamped in with -ldflags and
// filled in from the embedded VCS build settings when absent.
package version

import (
	"fmt"
	"runtime/debug"
)

const AppName = "healthili"

var (
	Version    = "dev"
	Commit     = "none"
	CommitDate string
	BuildDate  string
	BuildId    string
	GoVersion  string
	VCSDirty   *bool
)

type Info struct {
	AppName    string `json:"app"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date"`
	BuildDate  string `json:"build_date"`
	BuildId    string `json:"build_id"`
	GoVersion  string `json:"go_version"`
	VCSDirty   *bool  `json:"vcs_dirty,omitempty"`
}

func Get() Info {
	out := Info{
		AppName:    AppName,
		Version:    Version,
		Commit:     Commit,
		CommitDate: CommitDate,
		BuildDate:  BuildDate,
		BuildId:    BuildId,
		GoVersion:  GoVersion,
		VCSDirty:   VCSDirty,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	out.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "none" && s.Value != "" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.BuildDate == "" && s.Value != "" {
				out.BuildDate = s.Value
			}
			out.CommitDate = s.Value
		case "vcs.modified":
			dirty := s.Value == "true"
			if s.Value == "true" || s.Value == "false" {
				out.VCSDirty = &dirty
			}
		}
	}
	return out
}

// String renders the one-line form printed by -V.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)",
		i.AppName, i.Version, i.Commit, i.CommitDate, i.BuildId, i.BuildDate, i.GoVersion,
		i.VCSDirty != nil && *i.VCSDirty,
	)
}
