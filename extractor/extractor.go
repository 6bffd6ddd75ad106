// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies

// Package extractor writes the files disclosed by a sourcemap under an output
// root. Every entry is handled on its own: a bad entry is recorded in the
// Report and never stops the others.
package extractor

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"sourcemapx.safepic.fr/pathsafe"
	"sourcemapx.safepic.fr/sourcemap"
)

// Config is passed to New. Zero values get the defaults.
type Config struct {
	Root           string
	Logger         log.FieldLogger
	StripPrefixes  []string
	ExternalMarker string
	ParentDirName  string
	UseSourceRoot  bool
	Beautify       bool
	EOL            string
}

// Extractor is safe for concurrent use across documents. Two entries that
// sanitize to the same path overwrite each other; the last write wins.
type Extractor struct {
	cfg       Config
	log       log.FieldLogger
	sanitizer *pathsafe.Sanitizer
	loader    *sourcemap.Loader
}

// New creates the output root when missing.
func New(cfg Config) (*Extractor, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	if cfg.StripPrefixes == nil {
		cfg.StripPrefixes = DefaultStripPrefixes
	}
	if cfg.ExternalMarker == "" {
		cfg.ExternalMarker = DefaultExternalMarker
	}
	if cfg.ParentDirName == "" {
		cfg.ParentDirName = DefaultParentDirName
	}
	if err := ValidateEOL(cfg.EOL); err != nil {
		return nil, err
	}
	s, err := pathsafe.New(cfg.Root)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:       cfg,
		log:       cfg.Logger,
		sanitizer: s,
		loader:    sourcemap.NewLoader(cfg.Logger),
	}, nil
}

// Root is the absolute output root.
func (e *Extractor) Root() string { return e.sanitizer.Root() }

// Sanitizer exposes the path sanitizer bound to the output root.
func (e *Extractor) Sanitizer() *pathsafe.Sanitizer { return e.sanitizer }

// Loader returns the loader sharing this extractor's logger.
func (e *Extractor) Loader() *sourcemap.Loader { return e.loader }

// Extract visits the overlapping prefix of sources/sourcesContent in index
// order.
func (e *Extractor) Extract(doc *sourcemap.Document) *Report {
	rep := &Report{Map: doc.Name, LengthMismatch: doc.LengthMismatch()}
	logger := e.log.WithField("map", doc.Name)

	for i := 0; i < doc.Len(); i++ {
		raw := doc.Source(i)
		entry := logger.WithFields(log.Fields{"index": i, "source": raw})

		content, ok := doc.Content(i)
		if !ok {
			entry.Debug("Skipped (no content)")
			rep.add(Event{Kind: EventNoContent, Index: i, Source: raw})
			continue
		}

		sp := e.splitSource(raw, doc.SourceRoot)
		if sp.external {
			entry.WithField("ref", sp.ref).Warn("Found external sourcemap, not currently supported. Skipping")
			rep.add(Event{Kind: EventExternal, Index: i, Source: raw, Ref: sp.ref})
			continue
		}

		// a nameless entry would resolve to its directory and shadow siblings
		var path string
		var err error
		if pathsafe.SanitizeName(sp.file) == "" {
			err = &pathsafe.RejectError{Directory: sp.dir, Filename: sp.file}
		} else {
			path, err = e.sanitizer.MakeValidFilePath(sp.dir, sp.file)
		}
		if err != nil {
			entry.WithField("security", true).WithError(err).Warn("Skipped (path blocked)")
			rep.add(Event{Kind: EventRejected, Index: i, Source: raw, Err: err})
			continue
		}

		n, err := e.write(path, content)
		if err != nil {
			entry.WithField("path", path).WithError(err).Error("Write failed")
			rep.add(Event{Kind: EventWriteFailed, Index: i, Source: raw, Path: path, Err: err})
			continue
		}
		entry.WithField("path", path).Info("Written")
		rep.add(Event{Kind: EventWritten, Index: i, Source: raw, Path: path, Bytes: n})
	}
	return rep
}

func (e *Extractor) write(path, content string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	data := []byte(e.transform(content) + e.newline())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
