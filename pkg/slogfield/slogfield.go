// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield holds the attribute constructors shared by the
// extension's infrastructure packages, so every package logs errors
// and latencies under the same keys.
package slogfield

import (
	"log/slog"
	"time"
)

// Error is always logged under "error".
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Uint32 widens n since slog has no 32-bit kind.
func Uint32(key string, n uint32) slog.Attr {
	return slog.Uint64(key, uint64(n))
}

// Duration keeps d as a time.Duration so JSON handlers render nanoseconds.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}
