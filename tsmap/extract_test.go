// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeMaps(t *testing.T, dir string, maps map[string]string) {
	t.Helper()
	for name, content := range maps {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestExtractCmd_Directory(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeMaps(t, in, map[string]string{
		"app.js.map":    `{"sources":["webpack:///./src/app.js","webpack:///../../secret/config.js"],"sourcesContent":["app","cfg"]}`,
		"broken.js.map": `not json`,
		"partial.map":   `{"sources":["a.js"]}`,
		"readme.txt":    `{"sources":["ignored.js"],"sourcesContent":["x"]}`,
	})
	require.NoError(t, os.Mkdir(filepath.Join(in, "nested.map"), 0o755))
	metrics := filepath.Join(t.TempDir(), "sourcemapx.prom")

	stdout, err := runCmd(t, "extract", in, "-o", out, "--metrics-file", metrics)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Found 3 .map files to process")
	data, err := os.ReadFile(filepath.Join(out, "src", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "app\n", string(data))
	assert.FileExists(t, filepath.Join(out, "parent_dir", "parent_dir", "secret", "config.js"))
	assert.NoFileExists(t, filepath.Join(out, "ignored.js"))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `sourcemapx_entries_total{outcome="written"} 2`)
	assert.Contains(t, string(prom), `sourcemapx_documents_total{status="not_a_map"} 1`)
	assert.Contains(t, string(prom), `sourcemapx_documents_total{status="missing_fields"} 1`)
}

func TestExtractCmd_SingleFile(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeMaps(t, in, map[string]string{
		"one.map": `{"sources":["a.js","b.js","c.js"],"sourcesContent":["A","B"]}`,
	})

	stdout, err := runCmd(t, "extract", filepath.Join(in, "one.map"), "--output", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "sources != sourcesContent")
	assert.FileExists(t, filepath.Join(out, "a.js"))
	assert.FileExists(t, filepath.Join(out, "b.js"))
	assert.NoFileExists(t, filepath.Join(out, "c.js"))
}

func TestExtractCmd_MissingDirectory(t *testing.T) {
	_, err := runCmd(t, "extract", filepath.Join(t.TempDir(), "nope"), "-o", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestExtractCmd_NoMapFiles(t *testing.T) {
	in := t.TempDir()
	writeMaps(t, in, map[string]string{"x.js": "var x;"})

	stdout, err := runCmd(t, "extract", in, "-o", filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "No .map files found")
}

func TestExtractCmd_NoValidInput(t *testing.T) {
	in := t.TempDir()
	writeMaps(t, in, map[string]string{"bad.map": "<html>"})

	_, err := runCmd(t, "extract", in, "-o", filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, ErrNoValidInput)
}

func TestExtractCmd_ConfigFile(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "from-config")
	writeMaps(t, in, map[string]string{"m.map": `{"sources":["ng:///lib/x.ts"],"sourcesContent":["x;y"]}`})

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfgBody := "output: " + out + "\nbeautify: true\nstrip_prefixes: [\"ng:///\"]\nworkers: 2\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody), 0o644))

	_, err := runCmd(t, "--config", cfgPath, "extract", in)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(out, "lib", "x.ts"))
	require.NoError(t, err)
	assert.Equal(t, "x;\ny\n", string(data))
}

func TestExtractCmd_InvalidFlag(t *testing.T) {
	_, err := runCmd(t, "extract", t.TempDir(), "--eol", "mac")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	stdout, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "sourcemapx version "))
}
