// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sourcemapx.safepic.fr/config"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "unknown"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	output     string
	verbose    bool
	quiet      bool
	logger     *log.Logger
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		cRed.Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree writing reports to out and logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{logger: log.New()}
	g.logger.Out = errOut

	root := &cobra.Command{
		Use:   "sourcemapx",
		Short: "Recover original sources disclosed by JavaScript sourcemaps",
		Long: `sourcemapx rebuilds the file tree embedded in sourcemaps (sources +
sourcesContent) under an output directory, sanitizing every path so that
nothing is ever written outside of it.

Examples:
  sourcemapx extract ./maps -o ./output        # every *.map in ./maps
  sourcemapx extract app.js.map -o ./output    # a single map
  sourcemapx crawl --url https://example.com   # find scripts, fetch their maps, extract`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch {
			case g.verbose:
				g.logger.SetLevel(log.DebugLevel)
			case g.quiet:
				g.logger.SetLevel(log.WarnLevel)
			default:
				g.logger.SetLevel(log.InfoLevel)
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML configuration file")
	pf.StringVarP(&g.output, "output", "o", "", "Output directory (created if missing)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "Only log warnings and errors")

	root.AddCommand(newExtractCmd(g))
	root.AddCommand(newCrawlCmd(g))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sourcemapx version %s (%s)\n", Version, Commit)
		},
	})
	return root
}

// loadConfig reads --config when given. --output wins over the file; without
// either, defaultOut is used.
func (g *globalOptions) loadConfig(cmd *cobra.Command, defaultOut string) (*config.Config, error) {
	cfg := config.Default()
	fromFile := false
	if g.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(g.configPath); err != nil {
			return nil, err
		}
		fromFile = true
	}
	switch {
	case cmd.Flags().Changed("output"):
		cfg.Output = g.output
	case !fromFile:
		cfg.Output = defaultOut
	}
	return cfg, nil
}
