// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies

// Package sourcemap parses sourcemap documents far enough to recover the
// original files they disclose. Mappings are never decoded.
package sourcemap

import "encoding/json"

// wireMap is the JSON shape. Pointers tell a missing key apart from an empty
// array and a null entry apart from an empty string. Only sources and
// sourcesContent are strict; the other keys are decoded best-effort.
type wireMap struct {
	Version        json.RawMessage `json:"version"`
	File           json.RawMessage `json:"file"`
	SourceRoot     json.RawMessage `json:"sourceRoot"`
	Sources        *[]*string      `json:"sources"`
	SourcesContent *[]*string      `json:"sourcesContent"`
	Names          json.RawMessage `json:"names"`
	Mappings       json.RawMessage `json:"mappings"`
}

// lenient decodes raw into a T, or returns the zero value when raw is absent
// or of another type.
func lenient[T any](raw json.RawMessage) T {
	var v T
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

// Document is one parsed sourcemap. It is not modified after Load.
type Document struct {
	Name       string
	Version    int
	File       string
	SourceRoot string
	NameCount  int

	sources []string
	content []*string
}

// Len is the number of aligned (source, content) pairs that extraction may
// visit: the shorter of the two arrays.
func (d *Document) Len() int {
	return min(len(d.sources), len(d.content))
}

// LengthMismatch reports whether sources and sourcesContent differ in length.
func (d *Document) LengthMismatch() bool {
	return len(d.sources) != len(d.content)
}

// SourceCount and ContentCount are the raw array lengths.
func (d *Document) SourceCount() int  { return len(d.sources) }
func (d *Document) ContentCount() int { return len(d.content) }

// Source returns sources[i].
func (d *Document) Source(i int) string { return d.sources[i] }

// Content returns sourcesContent[i]; ok is false when the entry is null.
func (d *Document) Content(i int) (content string, ok bool) {
	if c := d.content[i]; c != nil {
		return *c, true
	}
	return "", false
}

func newDocument(name string, w wireMap) *Document {
	doc := &Document{
		Name:       name,
		Version:    lenient[int](w.Version),
		File:       lenient[string](w.File),
		SourceRoot: lenient[string](w.SourceRoot),
		NameCount:  len(lenient[[]json.RawMessage](w.Names)),
		content:    *w.SourcesContent,
	}
	doc.sources = make([]string, len(*w.Sources))
	for i, s := range *w.Sources {
		if s != nil {
			doc.sources[i] = *s
		}
	}
	return doc
}
