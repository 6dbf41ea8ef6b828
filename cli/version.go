package cli

import "github.com/spf13/cobra"

// Version is overridden at build time via -ldflags.
var Version = "0.0.0"

func newVersionCommand(defaults *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(_ *cobra.Command, _ []string) {
			defaults.Printf("%s\n", Version)
		},
	}
}
