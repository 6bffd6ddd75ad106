// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sourcemapx.safepic.fr/config"
	"sourcemapx.safepic.fr/extractor"
	"sourcemapx.safepic.fr/fetcher"
	"sourcemapx.safepic.fr/pathsafe"
)

type crawlOptions struct {
	urls        []string
	urlsFile    string
	concurrency int
	userAgent   string
	proxy       string
	insecure    bool
	timeout     time.Duration
	saveJS      bool
	saveMap     bool
	noExtract   bool
	beautify    bool
	eol         string
	metricsFile string
}

func newCrawlCmd(g *globalOptions) *cobra.Command {
	o := &crawlOptions{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl pages, find their scripts and extract the sourcemaps",
		Long: `Fetch each page, collect its <script src> URLs, locate every script's
sourcemap (inline data: URI, sourceMappingURL comment, or <script>.map) and
extract it under <output>/<host>/<script dir>/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, g, o)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&o.urls, "url", "u", nil, "Page URL to crawl (repeatable)")
	f.StringVar(&o.urlsFile, "urls-file", "", "File with one page URL per line (# comments allowed)")
	f.IntVarP(&o.concurrency, "concurrency", "c", 4, "Parallel script downloads")
	f.StringVar(&o.userAgent, "user-agent", fetcher.DefaultUserAgent, "User-Agent header")
	f.StringVar(&o.proxy, "proxy", "", "Proxy URL (e.g. http://127.0.0.1:8080)")
	f.BoolVar(&o.insecure, "insecure", false, "Skip TLS verification, useful with burpsuite")
	f.DurationVar(&o.timeout, "timeout", fetcher.DefaultTimeout, "HTTP timeout")
	f.BoolVar(&o.saveJS, "save-js", false, "Save downloaded .js files alongside recovered sources")
	f.BoolVar(&o.saveMap, "save-map", false, "Save downloaded .map files alongside recovered sources")
	f.BoolVar(&o.noExtract, "no-extract", false, "Only download, do not extract sources")
	f.BoolVar(&o.beautify, "beautify", false, "Beautify minimal JS/TS")
	f.StringVar(&o.eol, "eol", "", "Normalize EOL: unix|dos")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	return cmd
}

func (o *crawlOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		cfg.Fetch.Concurrency = o.concurrency
	}
	if flags.Changed("user-agent") {
		cfg.Fetch.UserAgent = o.userAgent
	}
	if flags.Changed("proxy") {
		cfg.Fetch.Proxy = o.proxy
	}
	if flags.Changed("insecure") {
		cfg.Fetch.Insecure = o.insecure
	}
	if flags.Changed("timeout") {
		cfg.Fetch.Timeout = o.timeout
	}
	if flags.Changed("beautify") {
		cfg.Beautify = o.beautify
	}
	if flags.Changed("eol") {
		cfg.EOL = o.eol
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.metricsFile
	}
}

// crawler carries what every script worker shares.
type crawler struct {
	cfg     *config.Config
	opts    *crawlOptions
	fetch   *fetcher.Fetcher
	log     log.FieldLogger
	outRoot *pathsafe.Sanitizer
	metrics *runMetrics
	errOut  io.Writer
	quiet   bool
}

type scriptResult struct {
	script string
	mapRef string
	report *extractor.Report
	saved  []string
	err    error
}

var errNoSourceMap = errors.New("no sourcemap")

func runCrawl(cmd *cobra.Command, g *globalOptions, o *crawlOptions) error {
	cfg, err := g.loadConfig(cmd, "recovered")
	if err != nil {
		return err
	}
	o.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	pages, err := o.pageURLs()
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errors.New("missing --url or --urls-file")
	}

	fo := cfg.Fetcher()
	fo.Logger = g.logger
	f, err := fetcher.New(fo)
	if err != nil {
		return err
	}
	root, err := pathsafe.New(cfg.Output)
	if err != nil {
		return err
	}
	c := &crawler{
		cfg:     cfg,
		opts:    o,
		fetch:   f,
		log:     g.logger,
		outRoot: root,
		metrics: newRunMetrics(),
		errOut:  cmd.ErrOrStderr(),
		quiet:   g.quiet,
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	var results []scriptResult
	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		results = append(results, c.crawlPage(ctx, out, page)...)
	}

	written, bytes, maps := 0, int64(0), 0
	for _, r := range results {
		printScriptResult(out, r)
		if r.report != nil {
			maps++
			written += r.report.Written
			bytes += r.report.Bytes
			c.metrics.observeReport(r.report)
		}
	}
	fmt.Fprintln(out)
	cCyn.Fprint(out, "Done")
	fmt.Fprintf(out, ". Scripts processed: %d. Maps extracted: %d. Sources written: %d (%s)\n",
		len(results), maps, written, humanize.Bytes(uint64(bytes)))

	if merr := c.metrics.writeFile(cfg.MetricsFile); merr != nil {
		g.logger.WithError(merr).Error("Failed to write metrics file")
	}
	return ctx.Err()
}

func (o *crawlOptions) pageURLs() ([]string, error) {
	pages := append([]string(nil), o.urls...)
	if o.urlsFile != "" {
		fh, err := os.Open(o.urlsFile)
		if err != nil {
			return nil, fmt.Errorf("error loading URLs from file: %w", err)
		}
		defer fh.Close()
		more, err := fetcher.ReadURLList(fh)
		if err != nil {
			return nil, fmt.Errorf("error loading URLs from file: %w", err)
		}
		pages = append(pages, more...)
	}
	return pages, nil
}

func (c *crawler) crawlPage(ctx context.Context, out io.Writer, raw string) []scriptResult {
	pageURL, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || pageURL.Host == "" {
		c.log.WithField("url", raw).Error("Invalid url")
		return nil
	}
	fmt.Fprintf(out, "Fetching: %s\n", pageURL)
	body, err := c.fetch.Fetch(ctx, pageURL.String())
	c.metrics.observeFetch(err)
	if err != nil {
		return nil
	}

	scripts := fetcher.ParseScripts(string(body), pageURL)
	if len(scripts) == 0 {
		fmt.Fprintln(out, "No external script src found on page.")
		return nil
	}

	if s := c.newSpinner(len(scripts)); s != nil {
		s.Start()
		defer s.Stop()
	}

	results := make([]scriptResult, len(scripts))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.cfg.Fetch.Concurrency)
	for i, script := range scripts {
		eg.Go(func() error {
			results[i] = c.processScript(egctx, script)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// newSpinner returns nil under --quiet.
func (c *crawler) newSpinner(scripts int) *spinner.Spinner {
	if c.quiet {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.errOut))
	s.Suffix = fmt.Sprintf(" Processing %d scripts", scripts)
	return s
}

func (c *crawler) processScript(ctx context.Context, scriptURL *url.URL) scriptResult {
	res := scriptResult{script: scriptURL.String()}
	logger := c.log.WithField("script", res.script)

	js, err := c.fetch.Fetch(ctx, res.script)
	c.metrics.observeFetch(err)
	if err != nil {
		res.err = err
		return res
	}

	hostPath := hostPathForURL(scriptURL)
	if c.opts.saveJS {
		jsName := path.Base(scriptURL.Path)
		if jsName == "" || jsName == "/" || jsName == "." {
			jsName = "script.js"
		}
		if p, err := c.save(hostPath, jsName, js); err != nil {
			logger.WithError(err).Warn("Failed to save script")
		} else {
			res.saved = append(res.saved, p)
		}
	}

	ref := fetcher.FindSourceMap(js, scriptURL)
	data := ref.Inline
	mapName := path.Base(scriptURL.Path) + ".map"
	if data == nil {
		res.mapRef = ref.URL.String()
		mapName = path.Base(ref.URL.Path)
		data, err = c.fetch.Fetch(ctx, res.mapRef)
		c.metrics.observeFetch(err)
		if err != nil {
			if ref.Guessed {
				err = errNoSourceMap
			}
			res.err = err
			return res
		}
	} else {
		res.mapRef = "inline"
	}

	if c.opts.saveMap {
		if p, err := c.save(hostPath, mapName, data); err != nil {
			logger.WithError(err).Warn("Failed to save sourcemap")
		} else {
			res.saved = append(res.saved, p)
		}
	}
	if c.opts.noExtract {
		return res
	}

	outDir, err := c.outRoot.MakeValidFilePath(hostPath, "")
	if err != nil {
		res.err = err
		return res
	}
	ec := c.cfg.Extractor()
	ec.Root = outDir
	ec.Logger = logger
	ex, err := extractor.New(ec)
	if err != nil {
		res.err = err
		return res
	}
	doc, err := ex.Loader().LoadBytes(res.mapRef, data)
	if err != nil {
		res.err = err
		return res
	}
	res.report = ex.Extract(doc)
	return res
}

// save writes a downloaded artefact; its name comes from a URL and goes
// through the sanitizer like any source path.
func (c *crawler) save(dir, name string, data []byte) (string, error) {
	p, err := c.outRoot.MakeValidFilePath(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, os.WriteFile(p, data, 0o644)
}

// hostPathForURL is "<host>/<script dir>", still unsanitized.
func hostPathForURL(scriptURL *url.URL) string {
	host := scriptURL.Hostname()
	dir := strings.Trim(path.Dir(scriptURL.Path), "/")
	if dir == "" || dir == "." {
		return host
	}
	return host + "/" + dir
}

func printScriptResult(w io.Writer, r scriptResult) {
	switch {
	case errors.Is(r.err, errNoSourceMap):
		cYel.Fprint(w, "No sourcemap")
		fmt.Fprintf(w, " for %s\n", r.script)
	case r.err != nil:
		cYel.Fprint(w, "Failed")
		fmt.Fprintf(w, " %s: %v\n", r.script, r.err)
	case r.report != nil:
		cGrn.Fprint(w, "WRITTEN")
		fmt.Fprintf(w, ":%d map %s for %s\n", r.report.Written, r.mapRef, r.script)
	default:
		cGrn.Fprint(w, "Downloaded")
		fmt.Fprintf(w, " %s (map %s)\n", r.script, r.mapRef)
	}
	for _, p := range r.saved {
		fmt.Fprintf(w, "  saved %s\n", p)
	}
}
