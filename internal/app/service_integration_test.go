package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	service "github.com/okian/velvet/internal/app"
	"github.com/okian/velvet/internal/admission"
	"github.com/okian/velvet/internal/domain/model"
	"github.com/okian/velvet/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func startedService(t *testing.T, opts ...service.Option) (*service.Service, context.Context) {
	t.Helper()
	opts = append([]service.Option{
		service.WithStorePath(filepath.Join(t.TempDir(), "velvet.db")),
		service.WithSweepInterval(time.Hour), // keep the sweeper quiet during tests
	}, opts...)
	svc := service.New(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, ctx
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startedService(t)

		start := time.Now().UTC().Add(10 * time.Minute)
		end := start.Add(2 * time.Hour)

		Convey("When running a full admission lifecycle", func() {
			alice, err := svc.CreateUser(ctx, "alice")
			So(err, ShouldBeNil)
			So(alice.SocialScore, ShouldEqual, model.BaselineScore)
			bob, err := svc.CreateUser(ctx, "bob")
			So(err, ShouldBeNil)
			carol, err := svc.CreateUser(ctx, "carol")
			So(err, ShouldBeNil)

			ev, err := svc.CreateEvent(ctx, "thursday session", start, end, 2, "")
			So(err, ShouldBeNil)
			So(ev.Status, ShouldEqual, model.EventOpen)

			ra, err := svc.Submit(ctx, ev.ID, alice.ID)
			So(err, ShouldBeNil)
			rb, err := svc.Submit(ctx, ev.ID, bob.ID)
			So(err, ShouldBeNil)
			rc, err := svc.Submit(ctx, ev.ID, carol.ID)
			So(err, ShouldBeNil)

			Convey("Then the cap should split confirmed from waitlisted", func() {
				So(ra.Status, ShouldEqual, model.StatusConfirmed)
				So(rb.Status, ShouldEqual, model.StatusConfirmed)
				So(rc.Status, ShouldEqual, model.StatusWaitlisted)
			})

			Convey("And a duplicate submission should be rejected", func() {
				_, err := svc.Submit(ctx, ev.ID, alice.ID)
				So(err, ShouldWrap, admission.ErrDuplicateRSVP)
			})

			Convey("And the roster should expose both lists", func() {
				roster, err := svc.Roster(ctx, ev.ID)
				So(err, ShouldBeNil)
				So(len(roster.Confirmed), ShouldEqual, 2)
				So(len(roster.Waitlist), ShouldEqual, 1)
				So(roster.Waitlist[0].Position, ShouldEqual, 1)
				So(roster.Waitlist[0].RSVP.ID, ShouldEqual, rc.ID)
			})

			Convey("And cancelling a confirmed seat should promote the waitlist", func() {
				So(svc.Cancel(ctx, ra.ID, alice.ID), ShouldBeNil)

				roster, err := svc.Roster(ctx, ev.ID)
				So(err, ShouldBeNil)
				So(len(roster.Confirmed), ShouldEqual, 2)
				So(len(roster.Waitlist), ShouldEqual, 0)

				// Cancelling this close to start is a late cancel.
				u, entries, err := svc.UserScore(ctx, alice.ID)
				So(err, ShouldBeNil)
				So(u.SocialScore, ShouldEqual, model.BaselineScore-5)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Reason, ShouldEqual, model.ReasonLateCancel)

				Convey("And the promoted member can check in inside the early grace", func() {
					So(svc.CheckIn(ctx, rc.ID), ShouldBeNil)

					u, entries, err := svc.UserScore(ctx, carol.ID)
					So(err, ShouldBeNil)
					So(u.SocialScore, ShouldEqual, model.BaselineScore+2)
					So(entries[0].Reason, ShouldEqual, model.ReasonOnTime)
				})

				Convey("And the audit trail should tell the RSVP's story", func() {
					entries, err := svc.RSVPHistory(ctx, rc.ID)
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 2)
					So(entries[0].Action, ShouldEqual, model.ActionSubmit)
					So(entries[1].Action, ShouldEqual, model.ActionPromote)
				})
			})

			Convey("And sweeping before the event ends should be rejected", func() {
				_, err := svc.CloseEvent(ctx, ev.ID)
				So(err, ShouldWrap, admission.ErrInvalidTransition)
			})

			Convey("And a manual adjustment should move the cached score", func() {
				score, err := svc.AdjustScore(ctx, admission.Adjustment{
					UserID:   bob.ID,
					EventID:  ev.ID,
					Reason:   model.ReasonHelpedOut,
					IssuedBy: "admin-1",
				})
				So(err, ShouldBeNil)
				So(score, ShouldEqual, model.BaselineScore+3)
			})

			Convey("And the stats should reflect the stored state", func() {
				stats := svc.GetStats()
				So(stats.Started, ShouldBeTrue)
				So(stats.TotalUsers, ShouldEqual, 3)
				So(stats.OpenEvents, ShouldEqual, 1)
				So(stats.WaitlistDepth, ShouldEqual, 1)
			})
		})

		Convey("When closing an event's lifecycle state", func() {
			ev, err := svc.CreateEvent(ctx, "cancelled session", start, end, 5, "")
			So(err, ShouldBeNil)
			So(svc.SetEventStatus(ctx, ev.ID, model.EventCancelled), ShouldBeNil)

			u, err := svc.CreateUser(ctx, "dave")
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, ev.ID, u.ID)

			Convey("Then submissions should be rejected", func() {
				So(err, ShouldWrap, admission.ErrCapacityPolicy)
			})
		})
	})
}

func TestServiceIntegration_ConcurrentSubmissions(t *testing.T) {
	Convey("Given a capped event under concurrent submissions", t, func() {
		svc, ctx := startedService(t)

		const members = 20
		const seatCap = 5

		start := time.Now().UTC().Add(time.Hour)
		ev, err := svc.CreateEvent(ctx, "popular session", start, start.Add(2*time.Hour), seatCap, "")
		So(err, ShouldBeNil)

		userIDs := make([]string, members)
		for i := range userIDs {
			u, err := svc.CreateUser(ctx, fmt.Sprintf("member-%d", i))
			So(err, ShouldBeNil)
			userIDs[i] = u.ID
		}

		Convey("When everyone submits at once", func() {
			var wg sync.WaitGroup
			errs := make([]error, members)
			for i, id := range userIDs {
				wg.Add(1)
				go func(i int, id string) {
					defer wg.Done()
					_, errs[i] = svc.Submit(ctx, ev.ID, id)
				}(i, id)
			}
			wg.Wait()

			Convey("Then every submission should land and the cap should hold exactly", func() {
				for _, err := range errs {
					So(err, ShouldBeNil)
				}

				roster, err := svc.Roster(ctx, ev.ID)
				So(err, ShouldBeNil)
				So(len(roster.Confirmed), ShouldEqual, seatCap)
				So(len(roster.Waitlist), ShouldEqual, members-seatCap)
			})
		})
	})
}
