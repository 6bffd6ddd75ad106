// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package extractor

import (
	"bytes"
	"fmt"
	"strings"
)

// ValidateEOL accepts "", "unix", "dos" and "windows".
func ValidateEOL(mode string) error {
	switch strings.ToLower(mode) {
	case "", "unix", "dos", "windows":
		return nil
	}
	return fmt.Errorf("invalid eol mode %q (want unix or dos)", mode)
}

func (e *Extractor) transform(content string) string {
	if e.cfg.Beautify {
		content = beautifyBasic(content)
	}
	return normalizeEOL(content, e.cfg.EOL)
}

// Règles minimalistes non destructives
func beautifyBasic(s string) string {
	r := strings.NewReplacer(";", ";\n", "{", "{\n", "}", "}\n")
	s = r.Replace(s)
	var buf bytes.Buffer
	prevBlank := false
	for _, ln := range strings.Split(s, "\n") {
		line := strings.TrimRight(ln, " \t")
		if line == "" {
			if prevBlank {
				continue
			}
			prevBlank = true
		} else {
			prevBlank = false
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return strings.TrimRight(buf.String(), "\n")
}

func normalizeEOL(s, mode string) string {
	switch strings.ToLower(mode) {
	case "unix":
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	case "dos", "windows":
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	return s
}

func (e *Extractor) newline() string {
	switch strings.ToLower(e.cfg.EOL) {
	case "dos", "windows":
		return "\r\n"
	}
	return "\n"
}
