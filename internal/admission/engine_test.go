package admission_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/velvet/internal/adapters/storage/sqlite"
	"github.com/okian/velvet/internal/admission"
	"github.com/okian/velvet/internal/domain/model"
	"github.com/okian/velvet/internal/ledger"
	"github.com/okian/velvet/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// Test helpers

func newTestEngine(t *testing.T) (*admission.Engine, *sqlite.Store) {
	t.Helper()
	_ = logger.Init()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "velvet.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return admission.New(store, ledger.New(store)), store
}

func seedUser(t *testing.T, store *sqlite.Store, id string, score float64) {
	t.Helper()
	now := time.Now().UTC()
	err := store.CreateUser(context.Background(), model.User{
		ID:          id,
		DisplayName: id,
		SocialScore: score,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func seedEvent(t *testing.T, store *sqlite.Store, id string, start, end time.Time, maxAttendees int) model.Event {
	t.Helper()
	ev := model.Event{
		ID:           id,
		Title:        "event " + id,
		Status:       model.EventOpen,
		StartTime:    start,
		EndTime:      end,
		MaxAttendees: maxAttendees,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("seed event %s: %v", id, err)
	}
	return ev
}

func userScore(t *testing.T, store *sqlite.Store, id string) float64 {
	t.Helper()
	u, err := store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %s: %v", id, err)
	}
	return u.SocialScore
}

func TestSubmit(t *testing.T) {
	Convey("Given an open event with a cap of two", t, func() {
		eng, store := newTestEngine(t)
		ctx := context.Background()

		start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
		end := start.Add(3 * time.Hour)
		seedEvent(t, store, "ev1", start, end, 2)
		seedUser(t, store, "alice", 100)
		seedUser(t, store, "bob", 100)
		seedUser(t, store, "carol", 140)

		submitAt := start.Add(-48 * time.Hour)

		Convey("When members submit while seats remain", func() {
			r1, err1 := eng.Submit(ctx, "ev1", "alice", submitAt)
			r2, err2 := eng.Submit(ctx, "ev1", "bob", submitAt.Add(time.Minute))

			Convey("Then both should be confirmed", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(r1.Status, ShouldEqual, model.StatusConfirmed)
				So(r2.Status, ShouldEqual, model.StatusConfirmed)
			})

			Convey("And the submission should capture the score snapshot", func() {
				So(r1.SocialScoreAtRSVP, ShouldEqual, 100.0)
				So(r1.EffectiveTime, ShouldEqual, r1.RSVPTime)
			})

			Convey("And a later submission past the cap should be waitlisted even with a better score", func() {
				r3, err := eng.Submit(ctx, "ev1", "carol", submitAt.Add(2*time.Minute))
				So(err, ShouldBeNil)
				So(r3.Status, ShouldEqual, model.StatusWaitlisted)
				// 140 points buy 40 minutes; still no bumping of the
				// already-confirmed seats.
				So(r3.EffectiveTime, ShouldEqual, r3.RSVPTime.Add(-40*time.Minute))
			})

			Convey("And the audit trail should record the creation", func() {
				entries, err := store.ListHistoryByRSVP(ctx, r1.ID)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Action, ShouldEqual, model.ActionSubmit)
				So(entries[0].FromStatus, ShouldEqual, model.RSVPStatus(""))
				So(entries[0].ToStatus, ShouldEqual, model.StatusConfirmed)
			})
		})

		Convey("When a member submits twice", func() {
			_, err1 := eng.Submit(ctx, "ev1", "alice", submitAt)
			_, err2 := eng.Submit(ctx, "ev1", "alice", submitAt.Add(time.Minute))

			Convey("Then the second submission should be rejected", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldWrap, admission.ErrDuplicateRSVP)
			})
		})

		Convey("When a member cancels and submits again", func() {
			r1, err := eng.Submit(ctx, "ev1", "alice", submitAt)
			So(err, ShouldBeNil)
			So(eng.Cancel(ctx, r1.ID, submitAt.Add(time.Hour), "alice"), ShouldBeNil)

			r2, err := eng.Submit(ctx, "ev1", "alice", submitAt.Add(2*time.Hour))

			Convey("Then the re-submission should be accepted as a new RSVP", func() {
				So(err, ShouldBeNil)
				So(r2.ID, ShouldNotEqual, r1.ID)
				So(r2.Status, ShouldEqual, model.StatusConfirmed)
			})
		})

		Convey("When the event has already started", func() {
			_, err := eng.Submit(ctx, "ev1", "alice", start)

			Convey("Then the submission should be rejected", func() {
				So(err, ShouldWrap, admission.ErrCapacityPolicy)
			})
		})

		Convey("When the event is not open", func() {
			seedUser(t, store, "dave", 100)
			ev := model.Event{
				ID: "ev-draft", Title: "draft", Status: model.EventDraft,
				StartTime: start, EndTime: end, MaxAttendees: 5,
				CreatedAt: time.Now().UTC(),
			}
			So(store.CreateEvent(ctx, ev), ShouldBeNil)

			_, err := eng.Submit(ctx, "ev-draft", "dave", submitAt)

			Convey("Then the submission should be rejected", func() {
				So(err, ShouldWrap, admission.ErrCapacityPolicy)
			})
		})

		Convey("When the event does not exist", func() {
			_, err := eng.Submit(ctx, "missing", "alice", submitAt)

			Convey("Then it should report not found", func() {
				So(err, ShouldWrap, admission.ErrNotFound)
			})
		})

		Convey("When the user does not exist", func() {
			_, err := eng.Submit(ctx, "ev1", "nobody", submitAt)

			Convey("Then it should report not found", func() {
				So(err, ShouldWrap, admission.ErrNotFound)
			})
		})
	})
}

func TestCancelAndPromotion(t *testing.T) {
	Convey("Given a full event with a waitlist", t, func() {
		eng, store := newTestEngine(t)
		ctx := context.Background()

		start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
		end := start.Add(3 * time.Hour)
		seedEvent(t, store, "ev1", start, end, 1)
		seedUser(t, store, "holder", 100)
		seedUser(t, store, "slow", 100)  // waitlisted first by clock
		seedUser(t, store, "sharp", 130) // waitlisted later, better effective time

		submitAt := start.Add(-72 * time.Hour)
		holder, err := eng.Submit(ctx, "ev1", "holder", submitAt)
		So(err, ShouldBeNil)
		slow, err := eng.Submit(ctx, "ev1", "slow", submitAt.Add(time.Minute))
		So(err, ShouldBeNil)
		sharp, err := eng.Submit(ctx, "ev1", "sharp", submitAt.Add(10*time.Minute))
		So(err, ShouldBeNil)
		So(slow.Status, ShouldEqual, model.StatusWaitlisted)
		So(sharp.Status, ShouldEqual, model.StatusWaitlisted)

		Convey("When the confirmed member cancels early", func() {
			cancelAt := start.Add(-48 * time.Hour)
			So(eng.Cancel(ctx, holder.ID, cancelAt, "holder"), ShouldBeNil)

			Convey("Then the best effective time should be promoted, not the earliest submission", func() {
				got, err := store.GetRSVP(ctx, sharp.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusConfirmed)

				still, err := store.GetRSVP(ctx, slow.ID)
				So(err, ShouldBeNil)
				So(still.Status, ShouldEqual, model.StatusWaitlisted)
			})

			Convey("And the early cancellation should cost nothing", func() {
				So(userScore(t, store, "holder"), ShouldEqual, 100.0)
				entries, err := store.ListScoreHistoryByUser(ctx, "holder", 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Reason, ShouldEqual, model.ReasonEarlyCancel)
				So(entries[0].Delta, ShouldEqual, 0.0)
			})

			Convey("And the promotion should be recorded in the audit trail", func() {
				entries, err := store.ListHistoryByRSVP(ctx, sharp.ID)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[1].Action, ShouldEqual, model.ActionPromote)
				So(entries[1].FromStatus, ShouldEqual, model.StatusWaitlisted)
				So(entries[1].ToStatus, ShouldEqual, model.StatusConfirmed)
			})
		})

		Convey("When the confirmed member cancels inside the grace window", func() {
			cancelAt := start.Add(-2 * time.Hour)
			So(eng.Cancel(ctx, holder.ID, cancelAt, "holder"), ShouldBeNil)

			Convey("Then the late cancellation should cost score", func() {
				So(userScore(t, store, "holder"), ShouldEqual, 95.0)
				entries, err := store.ListScoreHistoryByUser(ctx, "holder", 10)
				So(err, ShouldBeNil)
				So(entries[0].Reason, ShouldEqual, model.ReasonLateCancel)
				So(entries[0].Delta, ShouldEqual, -5.0)
			})
		})

		Convey("When a waitlisted member cancels", func() {
			So(eng.Cancel(ctx, slow.ID, start.Add(-time.Hour), "slow"), ShouldBeNil)

			Convey("Then no slot is freed and no penalty applies", func() {
				So(userScore(t, store, "slow"), ShouldEqual, 100.0)
				entries, err := store.ListScoreHistoryByUser(ctx, "slow", 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 0)

				held, err := store.GetRSVP(ctx, holder.ID)
				So(err, ShouldBeNil)
				So(held.Status, ShouldEqual, model.StatusConfirmed)
			})
		})

		Convey("When a cancelled RSVP is cancelled again", func() {
			So(eng.Cancel(ctx, holder.ID, start.Add(-time.Hour), "holder"), ShouldBeNil)
			err := eng.Cancel(ctx, holder.ID, start.Add(-time.Hour), "holder")

			Convey("Then the second cancel should be rejected", func() {
				So(err, ShouldWrap, admission.ErrInvalidTransition)
			})
		})

		Convey("When an unknown RSVP is cancelled", func() {
			err := eng.Cancel(ctx, "missing", start, "x")

			Convey("Then it should report not found", func() {
				So(err, ShouldWrap, admission.ErrNotFound)
			})
		})

		Convey("When a checked-in attendee is cancelled after the event ends", func() {
			So(eng.CheckIn(ctx, holder.ID, start), ShouldBeNil)
			So(userScore(t, store, "holder"), ShouldEqual, 102.0)

			err := eng.Cancel(ctx, holder.ID, end.Add(time.Hour), "holder")

			Convey("Then the cancel should be rejected and the attendance kept", func() {
				So(err, ShouldWrap, admission.ErrInvalidTransition)
				So(userScore(t, store, "holder"), ShouldEqual, 102.0)

				got, err := store.GetRSVP(ctx, holder.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusConfirmed)
				So(got.CheckedIn, ShouldBeTrue)

				still, err := store.GetRSVP(ctx, sharp.ID)
				So(err, ShouldBeNil)
				So(still.Status, ShouldEqual, model.StatusWaitlisted)
			})
		})

		Convey("When a member late-cancels, resubmits, and late-cancels again", func() {
			So(eng.Cancel(ctx, holder.ID, start.Add(-2*time.Hour), "holder"), ShouldBeNil)
			So(eng.Cancel(ctx, sharp.ID, start.Add(-110*time.Minute), "sharp"), ShouldBeNil)
			So(eng.Cancel(ctx, slow.ID, start.Add(-100*time.Minute), "slow"), ShouldBeNil)

			again, err := eng.Submit(ctx, "ev1", "holder", start.Add(-90*time.Minute))
			So(err, ShouldBeNil)
			So(again.Status, ShouldEqual, model.StatusConfirmed)
			So(eng.Cancel(ctx, again.ID, start.Add(-time.Hour), "holder"), ShouldBeNil)

			Convey("Then each RSVP lifecycle should be penalized on its own", func() {
				So(userScore(t, store, "holder"), ShouldEqual, 90.0)

				entries, err := store.ListScoreHistoryByUser(ctx, "holder", 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Reason, ShouldEqual, model.ReasonLateCancel)
				So(entries[1].Reason, ShouldEqual, model.ReasonLateCancel)
				So(entries[0].RSVPID, ShouldEqual, again.ID)
				So(entries[1].RSVPID, ShouldEqual, holder.ID)
			})
		})

		Convey("When the last confirmed member cancels with an empty waitlist", func() {
			So(eng.Cancel(ctx, slow.ID, start.Add(-48*time.Hour), "slow"), ShouldBeNil)
			So(eng.Cancel(ctx, sharp.ID, start.Add(-48*time.Hour), "sharp"), ShouldBeNil)
			So(eng.Cancel(ctx, holder.ID, start.Add(-48*time.Hour), "holder"), ShouldBeNil)

			Convey("Then the slot simply stays free", func() {
				rsvps, err := store.ListActiveByEvent(ctx, "ev1")
				So(err, ShouldBeNil)
				So(len(rsvps), ShouldEqual, 0)
			})
		})
	})
}

func TestCheckIn(t *testing.T) {
	Convey("Given a confirmed RSVP", t, func() {
		eng, store := newTestEngine(t)
		ctx := context.Background()

		start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
		end := start.Add(3 * time.Hour)
		seedEvent(t, store, "ev1", start, end, 5)
		seedUser(t, store, "alice", 100)

		rsvp, err := eng.Submit(ctx, "ev1", "alice", start.Add(-24*time.Hour))
		So(err, ShouldBeNil)

		Convey("When checking in on time", func() {
			So(eng.CheckIn(ctx, rsvp.ID, start.Add(5*time.Minute)), ShouldBeNil)

			Convey("Then the arrival should earn the on-time delta", func() {
				So(userScore(t, store, "alice"), ShouldEqual, 102.0)
				entries, err := store.ListScoreHistoryByUser(ctx, "alice", 10)
				So(err, ShouldBeNil)
				So(entries[0].Reason, ShouldEqual, model.ReasonOnTime)
			})

			Convey("And the RSVP should be marked checked in", func() {
				got, err := store.GetRSVP(ctx, rsvp.ID)
				So(err, ShouldBeNil)
				So(got.CheckedIn, ShouldBeTrue)
				So(got.CheckedInAt.IsZero(), ShouldBeFalse)
			})

			Convey("And a second check-in should be rejected", func() {
				So(eng.CheckIn(ctx, rsvp.ID, start.Add(10*time.Minute)), ShouldWrap, admission.ErrInvalidTransition)
			})
		})

		Convey("When checking in past the lateness threshold", func() {
			So(eng.CheckIn(ctx, rsvp.ID, start.Add(20*time.Minute)), ShouldBeNil)

			Convey("Then the arrival should cost the late delta", func() {
				So(userScore(t, store, "alice"), ShouldEqual, 98.0)
				entries, err := store.ListScoreHistoryByUser(ctx, "alice", 10)
				So(err, ShouldBeNil)
				So(entries[0].Reason, ShouldEqual, model.ReasonLateArrival)
			})
		})

		Convey("When checking in within the early grace", func() {
			So(eng.CheckIn(ctx, rsvp.ID, start.Add(-20*time.Minute)), ShouldBeNil)

			Convey("Then the arrival should count as on time", func() {
				So(userScore(t, store, "alice"), ShouldEqual, 102.0)
			})
		})

		Convey("When checking in before the window opens", func() {
			err := eng.CheckIn(ctx, rsvp.ID, start.Add(-2*time.Hour))

			Convey("Then it should be rejected", func() {
				So(err, ShouldWrap, admission.ErrCheckInWindow)
				So(userScore(t, store, "alice"), ShouldEqual, 100.0)
			})
		})

		Convey("When checking in after the event ends", func() {
			err := eng.CheckIn(ctx, rsvp.ID, end.Add(time.Minute))

			Convey("Then it should be rejected", func() {
				So(err, ShouldWrap, admission.ErrCheckInWindow)
			})
		})

		Convey("When a waitlisted RSVP checks in", func() {
			seedUser(t, store, "late-user", 100)
			seedEvent(t, store, "ev-full", start, end, 1)
			seedUser(t, store, "first", 100)
			_, err := eng.Submit(ctx, "ev-full", "first", start.Add(-24*time.Hour))
			So(err, ShouldBeNil)
			wl, err := eng.Submit(ctx, "ev-full", "late-user", start.Add(-23*time.Hour))
			So(err, ShouldBeNil)
			So(wl.Status, ShouldEqual, model.StatusWaitlisted)

			Convey("Then it should be rejected", func() {
				So(eng.CheckIn(ctx, wl.ID, start), ShouldWrap, admission.ErrInvalidTransition)
			})
		})
	})
}

func TestCloseEventSweep(t *testing.T) {
	Convey("Given an ended event with mixed attendance", t, func() {
		eng, store := newTestEngine(t)
		ctx := context.Background()

		start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
		end := start.Add(3 * time.Hour)
		seedEvent(t, store, "ev1", start, end, 5)
		seedUser(t, store, "showed", 100)
		seedUser(t, store, "ghost1", 100)
		seedUser(t, store, "ghost2", 100)

		submitAt := start.Add(-24 * time.Hour)
		attended, err := eng.Submit(ctx, "ev1", "showed", submitAt)
		So(err, ShouldBeNil)
		g1, err := eng.Submit(ctx, "ev1", "ghost1", submitAt)
		So(err, ShouldBeNil)
		g2, err := eng.Submit(ctx, "ev1", "ghost2", submitAt)
		So(err, ShouldBeNil)
		So(eng.CheckIn(ctx, attended.ID, start), ShouldBeNil)

		Convey("When sweeping before the event ends", func() {
			_, err := eng.CloseEventSweep(ctx, "ev1", end.Add(-time.Minute))

			Convey("Then the sweep should be rejected", func() {
				So(err, ShouldWrap, admission.ErrInvalidTransition)
			})
		})

		Convey("When sweeping after the event ends", func() {
			swept, err := eng.CloseEventSweep(ctx, "ev1", end.Add(time.Hour))

			Convey("Then only the unchecked confirmed RSVPs should be swept", func() {
				So(err, ShouldBeNil)
				So(swept, ShouldEqual, 2)

				kept, err := store.GetRSVP(ctx, attended.ID)
				So(err, ShouldBeNil)
				So(kept.Status, ShouldEqual, model.StatusConfirmed)

				for _, id := range []string{g1.ID, g2.ID} {
					got, err := store.GetRSVP(ctx, id)
					So(err, ShouldBeNil)
					So(got.Status, ShouldEqual, model.StatusNoShow)
				}
			})

			Convey("And each no-show should cost the penalty exactly once", func() {
				So(err, ShouldBeNil)
				So(userScore(t, store, "ghost1"), ShouldEqual, 90.0)
				So(userScore(t, store, "ghost2"), ShouldEqual, 90.0)
				So(userScore(t, store, "showed"), ShouldEqual, 102.0)
			})

			Convey("And sweeping again should be a no-op", func() {
				again, err := eng.CloseEventSweep(ctx, "ev1", end.Add(2*time.Hour))
				So(err, ShouldBeNil)
				So(again, ShouldEqual, 0)
				So(userScore(t, store, "ghost1"), ShouldEqual, 90.0)
			})

			Convey("And the sweep should appear in the audit trail", func() {
				entries, err := store.ListHistoryByRSVP(ctx, g1.ID)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[1].Action, ShouldEqual, model.ActionSweep)
				So(entries[1].ToStatus, ShouldEqual, model.StatusNoShow)
			})
		})

		Convey("When sweeping an unknown event", func() {
			_, err := eng.CloseEventSweep(ctx, "missing", end.Add(time.Hour))

			Convey("Then it should report not found", func() {
				So(err, ShouldWrap, admission.ErrNotFound)
			})
		})
	})
}

func TestCapOneScenario(t *testing.T) {
	Convey("Given a cap-one event with a holder and a waitlisted member", t, func() {
		eng, store := newTestEngine(t)
		ctx := context.Background()

		start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
		end := start.Add(2 * time.Hour)
		seedEvent(t, store, "ev1", start, end, 1)
		seedUser(t, store, "x", 100)
		seedUser(t, store, "y", 100)

		rx, err := eng.Submit(ctx, "ev1", "x", start.Add(-72*time.Hour))
		So(err, ShouldBeNil)
		ry, err := eng.Submit(ctx, "ev1", "y", start.Add(-71*time.Hour))
		So(err, ShouldBeNil)
		So(rx.Status, ShouldEqual, model.StatusConfirmed)
		So(ry.Status, ShouldEqual, model.StatusWaitlisted)

		Convey("When the holder cancels an hour before start", func() {
			So(eng.Cancel(ctx, rx.ID, start.Add(-time.Hour), "x"), ShouldBeNil)

			Convey("Then the waitlisted member should hold the seat", func() {
				got, err := store.GetRSVP(ctx, ry.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusConfirmed)
			})

			Convey("And the late cancel penalty should apply to the holder", func() {
				So(userScore(t, store, "x"), ShouldEqual, 95.0)
				So(userScore(t, store, "y"), ShouldEqual, 100.0)
			})

			Convey("And the promoted member can check in and be scored", func() {
				So(eng.CheckIn(ctx, ry.ID, start), ShouldBeNil)
				So(userScore(t, store, "y"), ShouldEqual, 102.0)
			})
		})
	})
}

func TestRoster(t *testing.T) {
	Convey("Given an event with confirmed and waitlisted members", t, func() {
		eng, store := newTestEngine(t)
		ctx := context.Background()

		start := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
		end := start.Add(2 * time.Hour)
		seedEvent(t, store, "ev1", start, end, 2)
		seedUser(t, store, "a", 100)
		seedUser(t, store, "b", 100)
		seedUser(t, store, "c", 100)
		seedUser(t, store, "d", 160)

		submitAt := start.Add(-48 * time.Hour)
		ra, err := eng.Submit(ctx, "ev1", "a", submitAt)
		So(err, ShouldBeNil)
		rb, err := eng.Submit(ctx, "ev1", "b", submitAt.Add(time.Minute))
		So(err, ShouldBeNil)
		rc, err := eng.Submit(ctx, "ev1", "c", submitAt.Add(2*time.Minute))
		So(err, ShouldBeNil)
		rd, err := eng.Submit(ctx, "ev1", "d", submitAt.Add(3*time.Minute))
		So(err, ShouldBeNil)

		Convey("When reading the roster", func() {
			roster, err := eng.Roster(ctx, "ev1")

			Convey("Then the confirmed list should follow submission order", func() {
				So(err, ShouldBeNil)
				So(len(roster.Confirmed), ShouldEqual, 2)
				So(roster.Confirmed[0].ID, ShouldEqual, ra.ID)
				So(roster.Confirmed[1].ID, ShouldEqual, rb.ID)
			})

			Convey("And the waitlist should follow effective-time order with positions", func() {
				So(err, ShouldBeNil)
				So(len(roster.Waitlist), ShouldEqual, 2)
				// d's 160 points buy an hour of priority over c.
				So(roster.Waitlist[0].RSVP.ID, ShouldEqual, rd.ID)
				So(roster.Waitlist[0].Position, ShouldEqual, 1)
				So(roster.Waitlist[1].RSVP.ID, ShouldEqual, rc.ID)
				So(roster.Waitlist[1].Position, ShouldEqual, 2)
			})
		})

		Convey("When reading the roster of an unknown event", func() {
			_, err := eng.Roster(ctx, "missing")

			Convey("Then it should report not found", func() {
				So(err, ShouldWrap, admission.ErrNotFound)
			})
		})
	})
}

func TestAdjustScore(t *testing.T) {
	Convey("Given a tracked member", t, func() {
		eng, store := newTestEngine(t)
		ctx := context.Background()
		now := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)

		seedUser(t, store, "alice", 100)

		Convey("When an operator records brought gear twice", func() {
			s1, err1 := eng.AdjustScore(ctx, admission.Adjustment{
				UserID: "alice", EventID: "ev1", Reason: model.ReasonBroughtGear, IssuedBy: "admin-1",
			}, now)
			s2, err2 := eng.AdjustScore(ctx, admission.Adjustment{
				UserID: "alice", EventID: "ev1", Reason: model.ReasonBroughtGear, IssuedBy: "admin-1",
			}, now.Add(time.Minute))

			Convey("Then both adjustments should apply", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(s1, ShouldEqual, 103.0)
				So(s2, ShouldEqual, 106.0)
				So(userScore(t, store, "alice"), ShouldEqual, 106.0)
			})

			Convey("And the issuer should be attributed in the ledger", func() {
				entries, err := store.ListScoreHistoryByUser(ctx, "alice", 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].CreatedBy, ShouldEqual, "admin-1")
			})
		})

		Convey("When an operator applies a free-form correction", func() {
			s, err := eng.AdjustScore(ctx, admission.Adjustment{
				UserID: "alice", Reason: model.ReasonManualAdjustment, Amount: -7.5, IssuedBy: "admin-2",
			}, now)

			Convey("Then the supplied amount should apply", func() {
				So(err, ShouldBeNil)
				So(s, ShouldEqual, 92.5)
			})
		})

		Convey("When an operator tries an engine-issued reason", func() {
			_, err := eng.AdjustScore(ctx, admission.Adjustment{
				UserID: "alice", Reason: model.ReasonNoShow, IssuedBy: "admin-1",
			}, now)

			Convey("Then it should be rejected", func() {
				So(err, ShouldWrap, admission.ErrInvalidTransition)
			})
		})

		Convey("When the issuer is missing", func() {
			_, err := eng.AdjustScore(ctx, admission.Adjustment{
				UserID: "alice", Reason: model.ReasonHelpedOut,
			}, now)

			Convey("Then it should be rejected", func() {
				So(err, ShouldWrap, admission.ErrInvalidTransition)
			})
		})

		Convey("When the member is unknown", func() {
			_, err := eng.AdjustScore(ctx, admission.Adjustment{
				UserID: "nobody", Reason: model.ReasonAggression, IssuedBy: "admin-1",
			}, now)

			Convey("Then it should report not found", func() {
				So(err, ShouldWrap, admission.ErrNotFound)
			})
		})
	})
}
