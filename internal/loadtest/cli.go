package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/velvet/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "load_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Velvet Admission Load Tool
==========================

A concurrent tool for exercising the velvet event admission service:
it seeds members and events, floods the RSVP endpoint, cancels a
fraction of the confirmed seats, and verifies cap and waitlist
ordering on every roster.

Usage:
  go run cmd/load-test/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of members to create (default 200)
  -events int
        Number of events to create (default 10)
  -cap int
        Max attendees per event (default 12)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -cancel-rate float
        Fraction of confirmed RSVPs to cancel (default 0.2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for test output (default: load_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/load-test/main.go

  # A bigger crowd fighting for fewer seats
  go run cmd/load-test/main.go -users 2000 -events 20 -cap 8 -workers 16

  # Test with verbose output and a custom log file
  go run cmd/load-test/main.go -verbose -log my_test.log
`)
}
