// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"runtime"

	"github.com/fatih/color"
)

// Couleurs si TTY Linux/macOS
var (
	cRed = color.New(color.FgRed)
	cGrn = color.New(color.FgGreen)
	cYel = color.New(color.FgYellow)
	cCyn = color.New(color.FgCyan)
)

func init() {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		color.NoColor = true
	}
}
