// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package pathsafe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	return s
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	s, err := New(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(s.Root()))
}

func TestNew_EmptyRoot(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "index.js", "index.js"},
		{"spaces and parens", "file (1).ts", "file (1).ts"},
		{"slash smuggling", "a/b.js", "a_b.js"},
		{"backslash smuggling", `a\b.js`, "a_b.js"},
		{"dot dot", "..", ""},
		{"single dot", ".", ""},
		{"only punctuation", "-_.()", ""},
		{"accents transliterated", "café.js", "cafe.js"},
		{"non latin dropped", "файл.js", ".js"},
		{"fullwidth folded", "ａｂｃ.js", "abc.js"},
		{"control chars", "a\x00b\n.js", "ab.js"},
		{"query string", "chunk.js?v=3", "chunk.jsv3"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestSanitizeName_NonLatinOnlyCollapses(t *testing.T) {
	assert.Equal(t, "", SanitizeName("файл"))
}

func TestSanitizePath(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		in   string
		want string
	}{
		{"src/components", "src" + sep + "components"},
		{"../../etc", "etc"},
		{`..\..\windows`, "windows"},
		{"/abs/path", "abs" + sep + "path"},
		{"a//b///c", "a" + sep + "b" + sep + "c"},
		{"./.", ""},
		{"node_modules/@scope/pkg", "node_modules" + sep + "scope" + sep + "pkg"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePath(tt.in))
		})
	}
}

func TestMakeValidFilePath(t *testing.T) {
	s := newTestSanitizer(t)

	got, err := s.MakeValidFilePath("src/app", "main.ts")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "src", "app", "main.ts"), got)

	got, err = s.MakeValidFilePath("", "main.ts")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "main.ts"), got)
}

func TestMakeValidFilePath_RootItselfRejected(t *testing.T) {
	s := newTestSanitizer(t)

	for _, in := range [][2]string{{"", ""}, {"..", ".."}, {"/", "."}, {"../..", ""}} {
		_, err := s.MakeValidFilePath(in[0], in[1])
		require.Error(t, err, "dir=%q file=%q", in[0], in[1])
		assert.True(t, errors.Is(err, ErrPathRejected))

		var rej *RejectError
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, in[0], rej.Directory)
	}
}

func TestMakeValidFilePath_Idempotent(t *testing.T) {
	s := newTestSanitizer(t)
	a, errA := s.MakeValidFilePath("../x/./y", "z.js")
	b, errB := s.MakeValidFilePath("../x/./y", "z.js")
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestMakeValidFilePath_SymlinkStaysInside(t *testing.T) {
	s := newTestSanitizer(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(s.Root(), "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := s.MakeValidFilePath("link", "evil.js")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, s.Root()+string(filepath.Separator)), got)
	assert.False(t, strings.HasPrefix(got, outside), got)
}

func TestIsStrictlyUnder(t *testing.T) {
	root := []string{"tmp", "out"}
	assert.True(t, IsStrictlyUnder(root, []string{"tmp", "out", "a"}))
	assert.False(t, IsStrictlyUnder(root, []string{"tmp", "out"}))
	assert.False(t, IsStrictlyUnder(root, []string{"tmp"}))
	assert.False(t, IsStrictlyUnder(root, []string{"tmp", "outside", "a"}))
	assert.False(t, IsStrictlyUnder(root, []string{"etc", "passwd", "x"}))
}
