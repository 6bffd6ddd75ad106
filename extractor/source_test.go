// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSource(t *testing.T) {
	e := &Extractor{cfg: Config{
		StripPrefixes:  DefaultStripPrefixes,
		ExternalMarker: DefaultExternalMarker,
		ParentDirName:  DefaultParentDirName,
	}}
	tests := []struct {
		raw  string
		want sourcePath
	}{
		{"webpack:///./src/a.js", sourcePath{dir: "src", file: "a.js"}},
		{"webpack:///src/a.js", sourcePath{dir: "src", file: "a.js"}},
		{"webpack://app/src/a.js", sourcePath{dir: "app/src", file: "a.js"}},
		{"file:///home/me/a.ts", sourcePath{dir: "home/me", file: "a.ts"}},
		{"./a.js", sourcePath{dir: "", file: "a.js"}},
		{"a.js", sourcePath{dir: "", file: "a.js"}},
		{"../a.js", sourcePath{dir: "parent_dir", file: "a.js"}},
		{"../../s/c.js", sourcePath{dir: "parent_dir/parent_dir/s", file: "c.js"}},
		{"./../x/y.js", sourcePath{dir: "parent_dir/x", file: "y.js"}},
		{`src\win\a.js`, sourcePath{dir: "src/win", file: "a.js"}},
		{"C:/proj/a.js", sourcePath{dir: "proj", file: "a.js"}},
		{"//double//slash.js", sourcePath{dir: "double", file: "slash.js"}},
		{"src/dir/", sourcePath{dir: "src/dir", file: ""}},
		{"external foo.map", sourcePath{external: true, ref: "foo.map"}},
		{"webpack:///external", sourcePath{external: true}},
		{"externals/a.js", sourcePath{dir: "externals", file: "a.js"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, e.splitSource(tt.raw, ""))
		})
	}
}

func TestRewriteRelative(t *testing.T) {
	assert.Equal(t, "", rewriteRelative(".", "up"))
	assert.Equal(t, "up", rewriteRelative("..", "up"))
	assert.Equal(t, "up/up", rewriteRelative("../..", "up"))
	assert.Equal(t, "a/../b", rewriteRelative("a/../b", "up"))
	assert.Equal(t, ".hidden", rewriteRelative(".hidden", "up"))
}

func TestNormalizeEOL(t *testing.T) {
	assert.Equal(t, "a\nb\nc", normalizeEOL("a\r\nb\rc", "unix"))
	assert.Equal(t, "a\r\nb\r\nc", normalizeEOL("a\r\nb\nc", "dos"))
	assert.Equal(t, "a\r\nb", normalizeEOL("a\r\nb", ""))
}
