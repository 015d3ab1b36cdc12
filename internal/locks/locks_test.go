package locks_test

import (
	"sync"
	"testing"

	"github.com/okian/velvet/internal/locks"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	Convey("Given a lock registry", t, func() {
		r := locks.NewRegistry()

		Convey("When locking a key", func() {
			unlock := r.Lock("event-1")

			Convey("Then the key should be tracked and releasable", func() {
				So(r.Size(), ShouldEqual, 1)
				unlock()
			})
		})

		Convey("When many goroutines contend on one key", func() {
			var wg sync.WaitGroup
			counter := 0
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := r.Lock("event-1")
					counter++
					unlock()
				}()
			}
			wg.Wait()

			Convey("Then the critical section should be serialized", func() {
				So(counter, ShouldEqual, 100)
				So(r.Size(), ShouldEqual, 1)
			})
		})

		Convey("When locking distinct keys", func() {
			u1 := r.Lock("event-1")
			u2 := r.Lock("event-2")

			Convey("Then neither blocks the other", func() {
				So(r.Size(), ShouldEqual, 2)
				u1()
				u2()
			})
		})
	})
}
