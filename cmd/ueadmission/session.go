// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// SessionStatus describes the persisted session.
type SessionStatus struct {
	Persisted bool      `json:"persisted"`
	Active    bool      `json:"active"`
	UserID    int64     `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// newSessionCmd creates the session command group.
func newSessionCmd(opts *rootOptions, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear the remembered session",
	}
	cmd.AddCommand(newSessionStatusCmd(opts, deps))
	cmd.AddCommand(newSessionClearCmd(opts, deps))
	return cmd
}

func newSessionStatusCmd(opts *rootOptions, deps *Deps) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a remembered session exists and who it belongs to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := querySessionStatus(cmd, opts, deps)
			if err != nil {
				return err
			}
			var output string
			if jsonOutput {
				output, err = formatSessionJSON(status)
				if err != nil {
					return oops.Code("OUTPUT_FAILED").Wrapf(err, "failed to format JSON")
				}
			} else {
				output = formatSessionTable(status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")
	return cmd
}

func querySessionStatus(cmd *cobra.Command, opts *rootOptions, deps *Deps) (SessionStatus, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return SessionStatus{}, err
	}
	sessions, release, err := openSessions(cmd.Context(), cfg, stderrLogger(cmd, cfg), deps)
	if err != nil {
		return SessionStatus{}, err
	}
	defer release()

	state, ok := sessions.Load()
	status := SessionStatus{
		Persisted: ok,
		Active:    ok && state.Valid(deps.Clock.Now()),
	}
	if user, hasUser := state.User(); ok && hasUser {
		status.UserID = user.ID
		status.Email = user.Email
		status.Name = user.FullName()
		status.Role = user.Role
		status.ExpiresAt = state.ExpiresAt().UTC()
	}
	return status, nil
}

func formatSessionJSON(status SessionStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatSessionTable(status SessionStatus) string {
	if !status.Persisted {
		return "no remembered session"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	state := "active"
	if !status.Active {
		state = "expired"
	}
	_, _ = fmt.Fprintf(w, "STATE\t%s\n", state)
	_, _ = fmt.Fprintf(w, "USER\t%s <%s>\n", status.Name, status.Email)
	_, _ = fmt.Fprintf(w, "ROLE\t%s\n", status.Role)
	expires := "never"
	if !status.ExpiresAt.IsZero() {
		expires = status.ExpiresAt.Format(time.RFC3339)
	}
	_, _ = fmt.Fprintf(w, "EXPIRES\t%s\n", expires)
	_ = w.Flush()
	return buf.String()
}

func newSessionClearCmd(opts *rootOptions, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the remembered session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			sessions, release, err := openSessions(cmd.Context(), cfg, stderrLogger(cmd, cfg), deps)
			if err != nil {
				return err
			}
			defer release()

			if err := sessions.Clear().Err(); err != nil {
				return oops.Code("SESSION_CLEAR_FAILED").Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "remembered session cleared")
			return nil
		},
	}
}
