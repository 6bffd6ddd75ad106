// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcemapx.safepic.fr/extractor"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
output: /tmp/recovered
workers: 3
beautify: true
eol: unix
strip_prefixes: ["webpack:///", "ng:///"]
fetch:
  timeout: 10s
  user_agent: custom-agent
  proxy: http://127.0.0.1:8080
  insecure: true
  concurrency: 8
  max_body: 1024
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/recovered", cfg.Output)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Beautify)
	assert.Equal(t, "unix", cfg.EOL)
	assert.Equal(t, []string{"webpack:///", "ng:///"}, cfg.StripPrefixes)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "custom-agent", cfg.Fetch.UserAgent)
	assert.True(t, cfg.Fetch.Insecure)
	assert.Equal(t, 8, cfg.Fetch.Concurrency)

	ec := cfg.Extractor()
	assert.Equal(t, "/tmp/recovered", ec.Root)
	assert.Equal(t, extractor.DefaultParentDirName, ec.ParentDirName)

	fo := cfg.Fetcher()
	assert.Equal(t, "http://127.0.0.1:8080", fo.Proxy)
	assert.Equal(t, int64(1024), fo.MaxBody)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "output", cfg.Output)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, extractor.DefaultStripPrefixes, cfg.StripPrefixes)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.False(t, cfg.Fetch.Insecure)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"negative workers": "workers: -1\n",
		"bad eol":          "eol: mac\n",
		"bad parent dir":   "parent_dir_name: ../up\n",
		"dots parent dir":  "parent_dir_name: ..\n",
		"bad concurrency":  "fetch:\n  concurrency: -2\n",
		"bad max body":     "fetch:\n  max_body: -1\n",
		"not yaml":         "workers: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
