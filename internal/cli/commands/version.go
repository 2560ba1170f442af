package commands

import (
	"runtime"

	"github.com/leapstack-labs/leapbasic/internal/cli/config"
	"github.com/leapstack-labs/leapbasic/internal/cli/output"
	"github.com/spf13/cobra"
)

// BuildInfo identifies a build of the binary.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go" yaml:"go"`
	Platform  string `json:"platform" yaml:"platform"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display LeapBASIC version and build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := BuildInfo{
				Version:   version,
				Commit:    commit,
				BuildDate: buildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			cfg := config.GetConfig(cmd.Context())
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			if r.Structured() {
				return r.Data(info)
			}
			r.Printf("LeapBASIC v%s\n", info.Version)
			r.Muted("commit %s, built %s, %s %s", info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return nil
		},
	}
}
