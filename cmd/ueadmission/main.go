// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Command ueadmission is the UEAdmission client: the admission terminal UI
// plus session and account maintenance commands.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd(nil)
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
