package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/velvet/internal/loadtest"
)

// Default configuration constants.
const (
	defaultNumUsers         = 200
	defaultNumEvents        = 10
	defaultSeatCap          = 12
	defaultCancelRate       = 0.2
	defaultWorkerMultiplier = 2
	defaultTimeout          = 30 * time.Second
	defaultTestTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUsers   = flag.Int("users", defaultNumUsers, "Number of members to create")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of events to create")
		seatCap    = flag.Int("cap", defaultSeatCap, "Max attendees per event")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkerMultiplier, "Number of concurrent workers")
		cancelRate = flag.Float64("cancel-rate", defaultCancelRate, "Fraction of confirmed RSVPs to cancel")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile    = flag.String("log", "", "Log file for test output (default: load_test_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	// Setup logging
	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &loadtest.Config{
		BaseURL:    *baseURL,
		NumUsers:   *numUsers,
		NumEvents:  *numEvents,
		SeatCap:    *seatCap,
		Workers:    *workers,
		Timeout:    *timeout,
		CancelRate: *cancelRate,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
