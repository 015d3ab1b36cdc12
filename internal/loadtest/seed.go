package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/okian/velvet/pkg/logger"
)

// Seeding constants.
const (
	randomFloatDivisor = 1000000
	boostFraction      = 0.25 // fraction of members that get a manual boost
	eventStartLead     = 2 * time.Hour
	eventDuration      = 3 * time.Hour
)

// Manual reasons used to spread scores across the crowd.
var boostReasons = []string{"brought_gear", "helped_out"}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// seedUsers creates the crowd concurrently and boosts a fraction of it so
// waitlist ordering has real score spread to work with.
func seedUsers(ctx context.Context, config *Config, stats *Stats) ([]User, error) {
	logger.Get().Info(ctx, "seeding members", logger.Int("numUsers", config.NumUsers))

	client := newHTTPClient(config.Timeout)
	users := make([]User, config.NumUsers)
	errs := make([]error, config.NumUsers)

	var wg sync.WaitGroup
	sem := make(chan struct{}, config.Workers)
	for i := 0; i < config.NumUsers; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			users[i], errs[i] = createUser(ctx, client, config.BaseURL, fmt.Sprintf("member-%04d", i))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	stats.UsersCreated = len(users)

	// Boost a random slice of the crowd with repeatable manual reasons.
	for i := range users {
		if getRandomFloat() >= boostFraction {
			continue
		}
		reason := boostReasons[i%len(boostReasons)]
		boosts := 1 + i%3
		for b := 0; b < boosts; b++ {
			if err := boostScore(ctx, client, config.BaseURL, users[i].ID, reason); err != nil {
				return nil, err
			}
			stats.ScoresBoosted++
		}
	}

	logger.Get().Info(ctx, "members seeded",
		logger.Int("created", stats.UsersCreated),
		logger.Int("boosts", stats.ScoresBoosted))
	return users, nil
}

// seedEvents creates the target events, all opening in the near future.
func seedEvents(ctx context.Context, config *Config, stats *Stats) ([]Event, error) {
	logger.Get().Info(ctx, "seeding events",
		logger.Int("numEvents", config.NumEvents),
		logger.Int("seatCap", config.SeatCap))

	client := newHTTPClient(config.Timeout)
	events := make([]Event, 0, config.NumEvents)
	base := time.Now().UTC().Add(eventStartLead)

	for i := 0; i < config.NumEvents; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		ev, err := createEvent(ctx, client, config.BaseURL,
			fmt.Sprintf("session-%03d", i), start, start.Add(eventDuration), config.SeatCap)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	stats.EventsCreated = len(events)
	return events, nil
}
