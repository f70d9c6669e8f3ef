// Package xlog is the ambient, non-fatal diagnostic logger shared by the
// decoder and the CLI: checksum mismatches, flight-offset recovery shifts,
// and prelude id mismatches are logged here rather than surfaced as errors,
// per the decoder's lenient error-handling policy.
package xlog

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = log.New(os.Stderr, "[jpi] ", log.LstdFlags|log.Lmicroseconds)

// Logf writes a formatted diagnostic line. It never returns an error and
// never terminates the process — callers on the decode hot path can log
// and keep going.
func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

// Fatalf logs and exits; reserved for CLI-level usage errors, never called
// from inside the decoder itself.
func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// UseRotatingFile redirects subsequent Logf/Fatalf output to a rotating
// log file at path, in addition to stderr. It mirrors the daemon-style
// logging setup used elsewhere in this codebase's lineage: stdout/stderr
// stays human-usable, the rotator gives long-running batch jobs a durable
// trail.
func UseRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
}
