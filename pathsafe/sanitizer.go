// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies

// Package pathsafe turns untrusted (directory, filename) strings taken from
// sourcemaps into file paths that are proven to sit under a fixed output root.
package pathsafe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	securejoin "github.com/cyphar/filepath-securejoin"
	"golang.org/x/text/unicode/norm"
)

// ErrPathRejected is returned when a candidate path would not be a strict
// descendant of the root.
var ErrPathRejected = errors.New("path rejected")

// RejectError carries the inputs of a rejected path for reporting.
type RejectError struct {
	Directory string
	Filename  string
	Candidate string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("path rejected: dir=%q file=%q candidate=%q", e.Directory, e.Filename, e.Candidate)
}

func (e *RejectError) Unwrap() error { return ErrPathRejected }

// Sanitizer holds the output root. It is safe for concurrent use.
type Sanitizer struct {
	root  string
	parts []string
}

// New resolves root to an absolute path and creates it if missing.
func New(root string) (*Sanitizer, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("empty output root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	return &Sanitizer{root: abs, parts: splitComponents(abs)}, nil
}

// Root returns the absolute output root.
func (s *Sanitizer) Root() string { return s.root }

// MakeValidFilePath sanitizes directory and filename and joins them under the
// root. The result is either a strict descendant of the root or an error
// wrapping ErrPathRejected; nothing is created on disk.
func (s *Sanitizer) MakeValidFilePath(directory, filename string) (string, error) {
	dir := SanitizePath(directory)
	name := SanitizeName(filename)

	rel := filepath.Join(dir, name)
	candidate := s.root
	if rel != "" && rel != "." {
		// resolves symlinks already present under root as if root were "/"
		joined, err := securejoin.SecureJoin(s.root, rel)
		if err != nil {
			return "", &RejectError{Directory: directory, Filename: filename, Candidate: rel}
		}
		candidate = joined
	}
	candidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", &RejectError{Directory: directory, Filename: filename, Candidate: candidate}
	}

	if !IsStrictlyUnder(s.parts, splitComponents(candidate)) {
		return "", &RejectError{Directory: directory, Filename: filename, Candidate: candidate}
	}
	return candidate, nil
}

// SanitizeName cleans a single path component. Separators become '_', only
// [A-Za-z0-9._-() ] survive, and a name with no letter or digit left is
// returned empty so that "." and ".." can never act as navigation.
func SanitizeName(name string) string {
	if name == "" {
		return ""
	}
	name = toASCII(name)

	var b strings.Builder
	b.Grow(len(name))
	alnum := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isSeparator(c):
			b.WriteByte('_')
		case isAlnum(c):
			alnum = true
			b.WriteByte(c)
		case strings.IndexByte("-_.() ", c) >= 0:
			b.WriteByte(c)
		}
	}
	if !alnum {
		return ""
	}
	return b.String()
}

// SanitizePath splits a raw directory on both separator styles before any
// filtering, sanitizes every component and rejoins the survivors.
func SanitizePath(directory string) string {
	parts := strings.FieldsFunc(directory, func(r rune) bool {
		return r < utf8.RuneSelf && isSeparator(byte(r))
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if clean := SanitizeName(p); clean != "" {
			out = append(out, clean)
		}
	}
	return strings.Join(out, string(filepath.Separator))
}

// IsStrictlyUnder reports whether child has parent as a strict prefix.
func IsStrictlyUnder(parent, child []string) bool {
	if len(child) <= len(parent) {
		return false
	}
	for i := range parent {
		if parent[i] != child[i] {
			return false
		}
	}
	return true
}

func splitComponents(p string) []string {
	p = filepath.Clean(p)
	var parts []string
	if vol := filepath.VolumeName(p); vol != "" {
		parts = append(parts, vol)
		p = p[len(vol):]
	}
	for _, seg := range strings.Split(p, string(filepath.Separator)) {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

// NFKD then drop anything outside ASCII.
func toASCII(s string) string {
	s = norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSeparator(c byte) bool {
	return c == '/' || c == '\\' || c == filepath.Separator
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
