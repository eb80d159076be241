// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ueadmission/ueadmission/internal/auth"
)

// newHashPasswordCmd creates the hash-password subcommand. The password is
// read from the first line of stdin so it never appears in shell history.
func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for the user directory",
		Long: `Read a password from the first line of stdin and print its argon2id
hash in the format stored in users.password_hash.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return oops.Code("INPUT_FAILED").Wrapf(err, "failed to read password from stdin")
			}
			password := strings.TrimRight(line, "\r\n")

			hash, err := auth.NewArgon2idHasher().Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
