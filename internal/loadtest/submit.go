package loadtest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	progressInterval        = time.Second
)

type submission struct {
	eventID string
	userID  string
}

// submitRSVPs floods the RSVP endpoint with every (event, user) pair using a
// worker pool and collects the created RSVPs per event.
func submitRSVPs(ctx context.Context, config *Config, events []Event, users []User, stats *Stats) (map[string][]RSVP, error) {
	total := len(events) * len(users)
	log.Printf("submitting %d RSVPs with %d workers...", total, config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL

	var (
		submitted  int64
		confirmed  int64
		waitlisted int64
		duplicate  int64
		failed     int64
	)

	var mu sync.Mutex
	byEvent := make(map[string][]RSVP, len(events))
	lastReport := time.Now()

	jobs := make(chan submission, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				rsvp, outcome, err := submitRSVP(ctx, client, url, job.eventID, job.userID)
				atomic.AddInt64(&submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
				case outcome == "confirmed":
					atomic.AddInt64(&confirmed, 1)
				case outcome == "waitlisted":
					atomic.AddInt64(&waitlisted, 1)
				case outcome == "duplicate":
					atomic.AddInt64(&duplicate, 1)
				}
				if err == nil && outcome != "duplicate" {
					mu.Lock()
					byEvent[job.eventID] = append(byEvent[job.eventID], rsvp)
					mu.Unlock()
				}

				if time.Since(lastReport) >= progressInterval {
					lastReport = time.Now()
					done := atomic.LoadInt64(&submitted)
					if config.Verbose {
						log.Printf("progress: %d/%d submitted (confirmed: %d, waitlisted: %d, failed: %d)",
							done, total, atomic.LoadInt64(&confirmed), atomic.LoadInt64(&waitlisted), atomic.LoadInt64(&failed))
					} else {
						fmt.Printf("\rsubmitted: %d/%d", done, total)
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ev := range events {
			for _, u := range users {
				select {
				case <-ctx.Done():
					return
				case jobs <- submission{eventID: ev.ID, userID: u.ID}:
				}
			}
		}
	}()

	wg.Wait()
	if !config.Verbose {
		fmt.Println()
	}

	stats.RSVPsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RSVPsConfirmed = int(atomic.LoadInt64(&confirmed))
	stats.RSVPsWaitlisted = int(atomic.LoadInt64(&waitlisted))
	stats.RSVPsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.RSVPsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`RSVP submission completed:
   Confirmed: %d
   Waitlisted: %d
   Duplicate: %d
   Failed: %d
`, stats.RSVPsConfirmed, stats.RSVPsWaitlisted, stats.RSVPsDuplicate, stats.RSVPsFailed)

	if stats.RSVPsFailed > 0 {
		return byEvent, fmt.Errorf("%d RSVP submissions failed", stats.RSVPsFailed)
	}
	return byEvent, nil
}

// cancelSome withdraws a fraction of the confirmed seats so the service has
// to promote from the waitlists.
func cancelSome(ctx context.Context, config *Config, byEvent map[string][]RSVP, stats *Stats) error {
	if config.CancelRate <= 0 {
		return nil
	}

	client := newHTTPClient(config.Timeout)
	cancelled := 0
	for _, rsvps := range byEvent {
		for _, r := range rsvps {
			if r.Status != "confirmed" {
				continue
			}
			if getRandomFloat() >= config.CancelRate {
				continue
			}
			if err := cancelRSVP(ctx, client, config.BaseURL, r.ID, r.UserID); err != nil {
				return err
			}
			cancelled++
		}
	}

	stats.RSVPsCancelled = cancelled
	log.Printf("cancelled %d confirmed RSVPs", cancelled)
	return nil
}
