// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sourcemapx.safepic.fr/extractor"
)

// ErrNoValidInput is returned when map files were found but none loaded.
var ErrNoValidInput = errors.New("no valid sourcemap found")

type extractOptions struct {
	workers     int
	beautify    bool
	eol         string
	sourceRoot  bool
	metricsFile string
}

func newExtractCmd(g *globalOptions) *cobra.Command {
	o := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract <dir|file.map>",
		Short: "Extract sources from .map files",
		Long: `Extract every source embedded in the given sourcemap, or in every *.map
file directly inside the given directory (subdirectories are not scanned).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, g, o, args[0])
		},
	}
	f := cmd.Flags()
	f.IntVarP(&o.workers, "workers", "w", 1, "Map files processed in parallel")
	f.BoolVar(&o.beautify, "beautify", false, "Beautify minimal JS/TS")
	f.StringVar(&o.eol, "eol", "", "Line endings: unix|dos")
	f.BoolVar(&o.sourceRoot, "source-root", false, "Prefix sources with the map's sourceRoot")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	return cmd
}

func runExtract(cmd *cobra.Command, g *globalOptions, o *extractOptions, input string) error {
	cfg, err := g.loadConfig(cmd, "output")
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("beautify") {
		cfg.Beautify = o.beautify
	}
	if flags.Changed("eol") {
		cfg.EOL = o.eol
	}
	if flags.Changed("source-root") {
		cfg.UseSourceRoot = o.sourceRoot
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	targets, err := findMapFiles(input)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintf(out, "No .map files found in directory: %s\n", input)
		return nil
	}
	fmt.Fprintf(out, "Found %d .map files to process:\n", len(targets))

	ec := cfg.Extractor()
	ec.Logger = g.logger
	ex, err := extractor.New(ec)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Output directory: %s\n", ex.Root())

	br, err := ex.RunBatch(cmd.Context(), targets, cfg.Workers)
	printBatch(out, br)

	m := newRunMetrics()
	m.observeBatch(br)
	if merr := m.writeFile(cfg.MetricsFile); merr != nil {
		g.logger.WithError(merr).Error("Failed to write metrics file")
	}

	if err != nil {
		return err
	}
	if br.Loaded == 0 {
		return ErrNoValidInput
	}
	return nil
}

// findMapFiles lists *.map files directly inside input, or returns input
// itself when it is a file.
func findMapFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("directory '%s' does not exist", input)
		}
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".map") {
			targets = append(targets, filepath.Join(input, e.Name()))
		}
	}
	return targets, nil
}

func printBatch(w io.Writer, br *extractor.BatchReport) {
	for _, d := range br.Documents {
		if d.Err != nil {
			cRed.Fprint(w, "Skipped")
			fmt.Fprintf(w, ": %v\n", d.Err)
			continue
		}
		printReport(w, d.Report)
	}
	t := br.Totals
	fmt.Fprintln(w)
	cCyn.Fprint(w, "Summary")
	fmt.Fprintf(w, ": %d maps (%d unreadable, %d incomplete), %d written (%s), %d external, %d rejected, %d failed, %d empty\n",
		len(br.Documents), br.NotAMap, br.MissingFields,
		t.Written, humanize.Bytes(uint64(t.Bytes)), t.External, t.Rejected, t.Failed, t.NoContent)
}

func printReport(w io.Writer, r *extractor.Report) {
	cGrn.Fprint(w, "Written")
	fmt.Fprintf(w, ": %s -> %d files (%s)\n", r.Map, r.Written, humanize.Bytes(uint64(r.Bytes)))
	if r.LengthMismatch {
		cYel.Fprint(w, "  Warning")
		fmt.Fprintln(w, ": sources != sourcesContent, filenames may not match content")
	}
	for _, ev := range r.Events {
		switch ev.Kind {
		case extractor.EventExternal:
			cYel.Fprint(w, "  Skipped")
			fmt.Fprintf(w, " (external sourcemap %s): %s\n", ev.Ref, ev.Source)
		case extractor.EventRejected:
			cRed.Fprint(w, "  Blocked")
			fmt.Fprintf(w, " (path outside output): %q\n", ev.Source)
		case extractor.EventWriteFailed:
			cRed.Fprint(w, "  Failed")
			fmt.Fprintf(w, ": %s: %v\n", ev.Path, ev.Err)
		}
	}
}
