// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package fetcher

import (
	"bufio"
	"encoding/base64"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	reSourceMapInline  = regexp.MustCompile(`(?m)//[#@]\s*sourceMappingURL=data:application/json(?:;charset=[^;,]+)?;base64,([A-Za-z0-9+/=]+)`)
	reSourceMapComment = regexp.MustCompile(`(?m)//[#@]\s*sourceMappingURL\s*=\s*(\S+)\s*$`)
	reScriptSrc        = regexp.MustCompile(`(?i)<script[^>]+src\s*=\s*['"]([^'"]+)['"]`)
)

// MapRef says where the sourcemap of a script lives.
type MapRef struct {
	// Inline holds the decoded map for data: URIs.
	Inline []byte
	// URL is the map location, declared or guessed.
	URL *url.URL
	// Guessed is set when the script carries no sourceMappingURL and URL is
	// simply "<script>.map".
	Guessed bool
}

// FindSourceMap looks for an inline map, then a sourceMappingURL comment,
// and falls back to guessing "<script>.map". The last comment wins, as
// browsers do. A broken inline map falls through to the next strategy.
func FindSourceMap(js []byte, scriptURL *url.URL) MapRef {
	text := string(js)

	if m := lastSubmatch(reSourceMapInline, text); m != "" {
		if data, err := base64.StdEncoding.DecodeString(m); err == nil {
			return MapRef{Inline: data}
		}
	}

	if ref := lastSubmatch(reSourceMapComment, text); ref != "" && !strings.HasPrefix(ref, "data:") {
		ref = strings.Trim(ref, "\"'")
		if u, err := scriptURL.Parse(ref); err == nil {
			return MapRef{URL: u}
		}
	}

	guess := *scriptURL
	guess.Path += ".map"
	guess.RawPath = ""
	guess.RawQuery = ""
	guess.Fragment = ""
	return MapRef{URL: &guess, Guessed: true}
}

func lastSubmatch(re *regexp.Regexp, s string) string {
	all := re.FindAllStringSubmatch(s, -1)
	if len(all) == 0 {
		return ""
	}
	return strings.TrimSpace(all[len(all)-1][1])
}

// ParseScripts returns the absolute, de-duplicated <script src> URLs of an
// HTML page, in document order.
func ParseScripts(src string, base *url.URL) []*url.URL {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return parseScriptsRegex(src, base)
	}
	var raw []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "script") {
			for _, a := range n.Attr {
				if strings.EqualFold(a.Key, "src") && strings.TrimSpace(a.Val) != "" {
					raw = append(raw, strings.TrimSpace(a.Val))
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return resolveAll(raw, base)
}

func parseScriptsRegex(src string, base *url.URL) []*url.URL {
	var raw []string
	for _, m := range reScriptSrc.FindAllStringSubmatch(src, -1) {
		raw = append(raw, m[1])
	}
	return resolveAll(raw, base)
}

func resolveAll(raw []string, base *url.URL) []*url.URL {
	seen := make(map[string]bool)
	var out []*url.URL
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			continue
		}
		u = base.ResolveReference(u)
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		if !seen[u.String()] {
			seen[u.String()] = true
			out = append(out, u)
		}
	}
	return out
}

// ReadURLList reads one URL per line, skipping blanks and # comments.
func ReadURLList(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
