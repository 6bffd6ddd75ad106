// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package extractor

import (
	"strings"
)

// DefaultStripPrefixes are the bundler pseudo-schemes removed from sources,
// first match wins.
var DefaultStripPrefixes = []string{"webpack:///", "webpack://", "file:///", "file://", "vscode://"}

const (
	DefaultExternalMarker = "external"
	DefaultParentDirName  = "parent_dir"
)

// sourcePath is one sources[i] entry after caller-side normalization.
type sourcePath struct {
	dir      string
	file     string
	external bool
	ref      string
}

func (e *Extractor) splitSource(raw, sourceRoot string) sourcePath {
	p := stripPrefix(strings.TrimSpace(raw), e.cfg.StripPrefixes)

	if fields := strings.Fields(p); len(fields) > 0 && fields[0] == e.cfg.ExternalMarker {
		sp := sourcePath{external: true}
		if len(fields) > 1 {
			sp.ref = fields[1]
		}
		return sp
	}

	if e.cfg.UseSourceRoot {
		p = stripPrefix(joinMaybe(sourceRoot, p), e.cfg.StripPrefixes)
	}
	p = normalizeSlashes(p)

	dir, file := "", p
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		dir, file = p[:i], p[i+1:]
	}
	return sourcePath{dir: rewriteRelative(dir, e.cfg.ParentDirName), file: file}
}

func stripPrefix(p string, prefixes []string) string {
	for _, pref := range prefixes {
		if strings.HasPrefix(p, pref) {
			return strings.TrimPrefix(p, pref)
		}
	}
	return p
}

// normalizeSlashes keeps leading ../ but drops roots, drive letters and
// repeated separators.
func normalizeSlashes(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	// enlever C: etc.
	if len(p) >= 2 && p[1] == ':' {
		p = strings.TrimLeft(p[2:], "/")
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// rewriteRelative drops leading ./ and turns every leading .. into a
// literal bucket directory instead of climbing.
func rewriteRelative(dir, parent string) string {
	var head []string
	for {
		switch {
		case strings.HasPrefix(dir, "./"):
			dir = dir[2:]
		case strings.HasPrefix(dir, "../"):
			head = append(head, parent)
			dir = dir[3:]
		case dir == "..":
			head = append(head, parent)
			dir = ""
		case dir == ".":
			dir = ""
		default:
			if dir != "" {
				head = append(head, dir)
			}
			return strings.Join(head, "/")
		}
	}
}

func joinMaybe(root, p string) string {
	if strings.TrimSpace(root) == "" {
		return p
	}
	return strings.TrimRight(root, "/\\") + "/" + strings.TrimLeft(p, "/\\")
}
