package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitlane/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildinfo.VersionWithTags())
			return err
		},
	}
}
