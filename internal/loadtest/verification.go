package loadtest

import (
	"context"
	"fmt"
	"log"
	"time"
)

// verifyRosters fetches every event's roster and checks the admission
// invariants the service promises: the cap holds, waitlist positions are
// dense, and the waitlist is ordered by effective time.
func verifyRosters(ctx context.Context, config *Config, events []Event, stats *Stats) error {
	log.Println("verifying rosters...")

	client := newHTTPClient(config.Timeout)
	for _, ev := range events {
		roster, err := fetchRoster(ctx, client, config.BaseURL, ev.ID)
		if err != nil {
			return err
		}

		if len(roster.Confirmed) > config.SeatCap {
			return fmt.Errorf("event %s: %d confirmed exceeds cap %d",
				ev.ID, len(roster.Confirmed), config.SeatCap)
		}
		if len(roster.Waitlist) > 0 && len(roster.Confirmed) < config.SeatCap {
			return fmt.Errorf("event %s: %d seats free while %d wait",
				ev.ID, config.SeatCap-len(roster.Confirmed), len(roster.Waitlist))
		}

		seen := make(map[string]bool, len(roster.Confirmed)+len(roster.Waitlist))
		for _, r := range roster.Confirmed {
			if seen[r.UserID] {
				return fmt.Errorf("event %s: user %s appears twice", ev.ID, r.UserID)
			}
			seen[r.UserID] = true
		}

		var prev time.Time
		for i, entry := range roster.Waitlist {
			if entry.Position != i+1 {
				return fmt.Errorf("event %s: waitlist position %d at index %d", ev.ID, entry.Position, i)
			}
			if seen[entry.RSVP.UserID] {
				return fmt.Errorf("event %s: user %s appears twice", ev.ID, entry.RSVP.UserID)
			}
			seen[entry.RSVP.UserID] = true

			eff, err := time.Parse(time.RFC3339, entry.RSVP.EffectiveTime)
			if err != nil {
				return fmt.Errorf("event %s: bad effective time %q: %w", ev.ID, entry.RSVP.EffectiveTime, err)
			}
			if i > 0 && eff.Before(prev) {
				return fmt.Errorf("event %s: waitlist out of order at position %d", ev.ID, entry.Position)
			}
			prev = eff
		}

		stats.RostersChecked++
		if config.Verbose {
			log.Printf("event %s ok: %d confirmed, %d waitlisted",
				ev.ID, len(roster.Confirmed), len(roster.Waitlist))
		}
	}

	log.Printf("all %d rosters verified", stats.RostersChecked)
	return nil
}
