package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitlane/internal/git"
	"github.com/thiagokokada/gitlane/internal/render"
)

func newRefsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs",
		Short: "List HEAD, branches, remote branches and tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.printRefs(cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.String("format", "text", "output format: text, json or yaml")
	f.Bool("color", true, "colorize text output (default: when stdout is a terminal)")
	return cmd
}

func (o *options) printRefs(out io.Writer) error {
	repo, err := git.Open(o.repo, o.cfg.CacheSize)
	if err != nil {
		return err
	}
	refs, err := git.ListRefs(repo)
	if err != nil {
		return err
	}
	format := o.cfg.OutputFormat()
	if format == render.FormatText {
		return render.WriteRefs(out, render.NewPalette(o.cfg.Color), refs)
	}
	enc, err := render.NewEncoder(out, format)
	if err != nil {
		return err
	}
	if refs == nil {
		refs = []git.Ref{}
	}
	if err := enc.Encode(refs); err != nil {
		return err
	}
	return enc.Close()
}
