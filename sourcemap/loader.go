// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package sourcemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotAMap means the input is not a JSON object.
	ErrNotAMap = errors.New("not a sourcemap")
	// ErrMissingFields means "sources" or "sourcesContent" is absent.
	ErrMissingFields = errors.New("sourcemap does not contain sources and/or sourcesContent")
)

// LoadError ties a load failure to the input that produced it.
type LoadError struct {
	Input string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Input, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// XSSI guard allowed in front of a map.
var xssiPrefix = []byte(")]}'")

// Loader reads sourcemaps from files or raw text.
type Loader struct {
	Logger log.FieldLogger
}

// NewLoader returns a Loader logging to logger, or to the standard logrus
// logger when nil.
func NewLoader(logger log.FieldLogger) *Loader {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Loader{Logger: logger}
}

// Load treats input as a path when it names an existing regular file and as
// JSON text otherwise.
func (l *Loader) Load(input string) (*Document, error) {
	if info, err := os.Stat(input); err == nil && info.Mode().IsRegular() {
		return l.LoadFile(input)
	}
	return l.LoadBytes("<inline>", []byte(input))
}

// LoadFile reads and parses the map at path.
func (l *Loader) LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Input: path, Err: fmt.Errorf("%w: %v", ErrNotAMap, err)}
	}
	return l.LoadBytes(path, data)
}

// LoadBytes parses data; name is only used in errors and log fields.
func (l *Loader) LoadBytes(name string, data []byte) (*Document, error) {
	data = bytes.ToValidUTF8(data, nil)
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.TrimPrefix(data, xssiPrefix)

	var w wireMap
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &LoadError{Input: name, Err: fmt.Errorf("%w: %v", ErrNotAMap, err)}
	}
	if w.Sources == nil || w.SourcesContent == nil {
		var missing []string
		if w.Sources == nil {
			missing = append(missing, "sources")
		}
		if w.SourcesContent == nil {
			missing = append(missing, "sourcesContent")
		}
		return nil, &LoadError{Input: name, Err: fmt.Errorf("%w (missing %s)", ErrMissingFields, strings.Join(missing, ", "))}
	}

	doc := newDocument(name, w)
	if doc.LengthMismatch() {
		l.logger().WithFields(log.Fields{
			"map":            name,
			"sources":        doc.SourceCount(),
			"sourcesContent": doc.ContentCount(),
		}).Warn("sources != sourcesContent, only the overlapping entries will be extracted")
	}
	return doc, nil
}

func (l *Loader) logger() log.FieldLogger {
	if l.Logger == nil {
		return log.StandardLogger()
	}
	return l.Logger
}
