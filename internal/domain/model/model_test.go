package model_test

import (
	"testing"

	"github.com/okian/velvet/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEventStatus(t *testing.T) {
	Convey("Given event statuses", t, func() {
		Convey("Then known statuses should be valid", func() {
			for _, s := range []model.EventStatus{
				model.EventDraft, model.EventOpen, model.EventClosed, model.EventCancelled,
			} {
				So(s.Valid(), ShouldBeTrue)
			}
		})

		Convey("Then unknown statuses should be invalid", func() {
			So(model.EventStatus("archived").Valid(), ShouldBeFalse)
			So(model.EventStatus("").Valid(), ShouldBeFalse)
		})
	})
}

func TestRSVPStatus(t *testing.T) {
	Convey("Given RSVP statuses", t, func() {
		Convey("Then known statuses should be valid", func() {
			for _, s := range []model.RSVPStatus{
				model.StatusConfirmed, model.StatusWaitlisted, model.StatusCancelled, model.StatusNoShow,
			} {
				So(s.Valid(), ShouldBeTrue)
			}
		})

		Convey("Then only confirmed and waitlisted should be active", func() {
			So(model.StatusConfirmed.Active(), ShouldBeTrue)
			So(model.StatusWaitlisted.Active(), ShouldBeTrue)
			So(model.StatusCancelled.Active(), ShouldBeFalse)
			So(model.StatusNoShow.Active(), ShouldBeFalse)
		})
	})
}

func TestReason(t *testing.T) {
	Convey("Given ledger reasons", t, func() {
		outcomes := []model.Reason{
			model.ReasonOnTime, model.ReasonLateArrival, model.ReasonNoShow,
			model.ReasonEarlyCancel, model.ReasonLateCancel,
		}
		manual := []model.Reason{
			model.ReasonBroughtGear, model.ReasonHelpedOut,
			model.ReasonAggression, model.ReasonManualAdjustment,
		}

		Convey("Then every known reason should be valid", func() {
			for _, r := range append(outcomes, manual...) {
				So(r.Valid(), ShouldBeTrue)
			}
			So(model.Reason("bribery").Valid(), ShouldBeFalse)
		})

		Convey("Then only lifecycle outcomes should be idempotency-guarded", func() {
			for _, r := range outcomes {
				So(r.Outcome(), ShouldBeTrue)
			}
			for _, r := range manual {
				So(r.Outcome(), ShouldBeFalse)
			}
		})
	})
}
