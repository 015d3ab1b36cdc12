package sweeper_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/velvet/internal/sweeper"
	"github.com/okian/velvet/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type fakeStore struct {
	mu         sync.Mutex
	candidates []string
	calls      int
}

func (f *fakeStore) ListSweepCandidates(_ context.Context, _ int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]string, len(f.candidates))
	copy(out, f.candidates)
	return out, nil
}

func (f *fakeStore) scans() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEngine struct {
	mu    sync.Mutex
	swept map[string]int
	fail  map[string]error
}

func (f *fakeEngine) CloseEventSweep(_ context.Context, eventID string, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[eventID]; ok {
		return 0, err
	}
	if f.swept == nil {
		f.swept = map[string]int{}
	}
	f.swept[eventID]++
	return 1, nil
}

func (f *fakeEngine) sweeps(eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.swept[eventID]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSweeper_Run(t *testing.T) {
	convey.Convey("Given a sweeper over ended events", t, func() {
		_ = logger.Init()

		convey.Convey("When the timer fires", func() {
			store := &fakeStore{candidates: []string{"ev1", "ev2"}}
			engine := &fakeEngine{}
			s := sweeper.New(store, engine, sweeper.WithInterval(10*time.Millisecond))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go s.Run(ctx)

			convey.Convey("Then every candidate should be swept", func() {
				waitFor(t, func() bool {
					return engine.sweeps("ev1") > 0 && engine.sweeps("ev2") > 0
				})
				convey.So(s.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When one event's sweep fails", func() {
			store := &fakeStore{candidates: []string{"bad", "good"}}
			engine := &fakeEngine{fail: map[string]error{"bad": errors.New("boom")}}
			s := sweeper.New(store, engine, sweeper.WithInterval(10*time.Millisecond))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go s.Run(ctx)

			convey.Convey("Then the remaining candidates should still be swept", func() {
				waitFor(t, func() bool { return engine.sweeps("good") > 0 })
				convey.So(s.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			store := &fakeStore{}
			engine := &fakeEngine{}
			s := sweeper.New(store, engine, sweeper.WithInterval(10*time.Millisecond))

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				s.Run(ctx)
				close(done)
			}()
			cancel()

			convey.Convey("Then Run should return", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("Run did not stop on context cancellation")
				}
			})
		})

		convey.Convey("When scanning repeatedly with no candidates", func() {
			store := &fakeStore{}
			engine := &fakeEngine{}
			s := sweeper.New(store, engine, sweeper.WithInterval(10*time.Millisecond))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go s.Run(ctx)

			convey.Convey("Then the sweeper should keep polling quietly", func() {
				waitFor(t, func() bool { return store.scans() >= 2 })
				convey.So(s.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When an interval option is invalid", func() {
			store := &fakeStore{}
			engine := &fakeEngine{}

			convey.Convey("Then construction should fall back to the default", func() {
				s := sweeper.New(store, engine, sweeper.WithInterval(0))
				convey.So(s, convey.ShouldNotBeNil)
			})
		})
	})
}
