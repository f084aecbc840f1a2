package cmd

import (
	"fmt"
	"runtime"
	rtdebug "runtime/debug"

	"github.com/spf13/cobra"

	"conductor/internal/formatting"
)

// versionInfo describes the running binary.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// currentVersion collects the injected version and the VCS revision the
// toolchain stamped into the binary, if any.
func currentVersion() versionInfo {
	info := versionInfo{
		Version:   rootCmd.Version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if bi, ok := rtdebug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				info.Commit = s.Value[:7]
			}
		}
	}
	return info
}

func (v versionInfo) String() string {
	s := fmt.Sprintf("conductor version %s", v.Version)
	if v.Commit != "" {
		s += " (" + v.Commit + ")"
	}
	return s + fmt.Sprintf(" %s %s", v.GoVersion, v.Platform)
}

func newVersionCmd() *cobra.Command {
	var output string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the conductor version and build details",
		Long: `Print the conductor version together with the Go toolchain and platform
the binary was built for. Use --output json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentVersion()
			switch output {
			case "", "console", "table":
				if quiet {
					fmt.Fprintln(cmd.OutOrStdout(), info.Version)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			case "json":
				fmt.Fprintln(cmd.OutOrStdout(), formatting.EncodeJSON(info, !quiet))
			default:
				return fmt.Errorf("unknown output format '%s'. Available formats: console, json", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "console", "Output format (console, json)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the version number, or compact JSON")
	return cmd
}
