package internal

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of gbdx",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Fprintln(cmd.ErrOrStderr(), "could not read build info")
				return
			}
			v, err := versionFromBuildInfo(info)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gbdx %s (%s)\n", v, info.GoVersion)
		},
	}
}

// versionFromBuildInfo prefers the module version and falls back to a
// pseudo-version built from the VCS stamp, see https://go.dev/ref/mod#pseudo-versions
func versionFromBuildInfo(info *debug.BuildInfo) (string, error) {
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v, nil
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	revision, at := settings["vcs.revision"], settings["vcs.time"]
	if revision == "" && at == "" {
		return "", fmt.Errorf("version information is not available")
	}

	var b strings.Builder
	b.WriteString("v0.0.0-")
	if p, err := time.Parse(time.RFC3339, at); err == nil {
		b.WriteString(p.UTC().Format("20060102150405"))
		b.WriteString("-")
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	b.WriteString(revision)
	if settings["vcs.modified"] == "true" {
		b.WriteString("+dirty")
	}
	return b.String(), nil
}
