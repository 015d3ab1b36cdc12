// Package loadtest drives the velvet admission service over HTTP: it seeds
// members and events, floods the RSVP endpoint from a worker pool, cancels a
// fraction of the winners, and verifies that every roster still honors the
// cap and waitlist ordering.
package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/velvet/pkg/logger"
)

// Run executes the complete admission load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting velvet admission load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.NumUsers),
		logger.Int("events", config.NumEvents),
		logger.Int("seatCap", config.SeatCap),
		logger.Int("workers", config.Workers),
		logger.Float64("cancelRate", config.CancelRate),
		logger.String("timeout", config.Timeout.String()))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Seed the crowd
	users, err := seedUsers(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("member seeding failed: %w", err)
	}

	// Step 3: Seed the events
	events, err := seedEvents(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("event seeding failed: %w", err)
	}

	// Step 4: Flood the RSVP endpoint
	byEvent, err := submitRSVPs(ctx, config, events, users, stats)
	if err != nil {
		return fmt.Errorf("rsvp submission failed: %w", err)
	}

	// Step 5: Cancel a fraction of the winners to force promotions
	if err := cancelSome(ctx, config, byEvent, stats); err != nil {
		return fmt.Errorf("cancellation pass failed: %w", err)
	}

	// Step 6: Verify every roster
	if err := verifyRosters(ctx, config, events, stats); err != nil {
		return fmt.Errorf("roster verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var submissionsPerSecond float64
	if stats.Duration > 0 {
		submissionsPerSecond = float64(stats.RSVPsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("usersCreated", stats.UsersCreated),
		logger.Int("eventsCreated", stats.EventsCreated),
		logger.Int("scoresBoosted", stats.ScoresBoosted),
		logger.Int("rsvpsSubmitted", stats.RSVPsSubmitted),
		logger.Int("rsvpsConfirmed", stats.RSVPsConfirmed),
		logger.Int("rsvpsWaitlisted", stats.RSVPsWaitlisted),
		logger.Int("rsvpsDuplicate", stats.RSVPsDuplicate),
		logger.Int("rsvpsFailed", stats.RSVPsFailed),
		logger.Int("rsvpsCancelled", stats.RSVPsCancelled),
		logger.Int("rostersChecked", stats.RostersChecked),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("submissionsPerSecond", submissionsPerSecond))
}
