package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thiagokokada/gitlane/internal/buildinfo"
	"github.com/thiagokokada/gitlane/internal/config"
)

func Run() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&options{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// options holds what every subcommand shares once flags and the config
// file have been resolved.
type options struct {
	repo       string
	configFile string

	v   *viper.Viper
	cfg config.Config
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitlane",
		Short: "Commit graph layout and file history for git repositories",
		Long: `gitlane lays out the commit graph of a repository as lanes, the way
graphical history viewers draw it, and traces the commits that changed a file.`,
		Version:       buildinfo.VersionWithTags(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&o.repo, "repo", "C", ".", "path to the repository")
	pf.StringVar(&o.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/gitlane/gitlane.yaml)")
	pf.BoolP("verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newGraphCmd(o),
		newHistoryCmd(o),
		newRefsCmd(o),
		newVersionCmd(),
	)
	return root
}

// load merges defaults, the config file, the environment and the flags of
// cmd, then installs the logger.
func (o *options) load(cmd *cobra.Command) error {
	o.v = config.New(!color.NoColor)
	if err := config.BindFlags(o.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	if cfg.File != "" {
		slog.Debug("loaded config", slog.String("file", cfg.File))
	}
	return nil
}

// addOutputFlags registers the flags shared by the listing commands. Their
// defaults only document the config defaults, which take precedence over
// unset flags.
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("limit", "n", 0, "stop after this many entries (0 prints all)")
	f.String("format", "text", "output format: text, json or yaml")
	f.Bool("color", true, "colorize text output (default: when stdout is a terminal)")
	f.Int("cache-size", 0, "number of decoded commits and tree lookups kept in memory")
}
