// Package logger sets up JSON structured logging on slog.
package logger

import (
	"io"
	"log/slog"
	"os"
)

func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault installs the JSON logger as the process default. Pass
// os.Stdout in production; nil falls back to it.
func SetupDefault(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	l := Setup(w)
	slog.SetDefault(l)
	return l
}
