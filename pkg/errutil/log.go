// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package errutil bridges oops errors and slog.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. For oops errors the code and context map
// are logged as separate attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	log(logger, slog.LevelError, msg, err, attrs...)
}

// LogWarn logs err at warn level. Used for failures that degrade behavior
// without failing the operation, such as best-effort persistence.
func LogWarn(logger *slog.Logger, msg string, err error, attrs ...any) {
	log(logger, slog.LevelWarn, msg, err, attrs...)
}

func log(logger *slog.Logger, level slog.Level, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	all := make([]any, 0, len(attrs)+6)
	all = append(all, attrs...)
	if oopsErr, ok := oops.AsOops(err); ok {
		all = append(all, "error", oopsErr.Error())
		if code := oopsErr.Code(); code != nil {
			all = append(all, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			all = append(all, "context", ctx)
		}
	} else {
		all = append(all, "error", err)
	}
	logger.Log(context.Background(), level, msg, all...)
}
