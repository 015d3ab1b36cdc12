package admission

import (
	"context"
	"sort"

	"github.com/okian/velvet/internal/domain/model"
	"github.com/okian/velvet/internal/domain/rank"
)

// WaitlistEntry is one waitlisted RSVP with its promotion position (1-based).
type WaitlistEntry struct {
	Position int
	RSVP     model.RSVP
}

// Roster is the queue state of one event.
type Roster struct {
	Event     model.Event
	Confirmed []model.RSVP
	Waitlist  []WaitlistEntry
}

// Roster returns the confirmed list (submission order) and the waitlist
// (promotion order) for an event.
func (e *Engine) Roster(ctx context.Context, eventID string) (Roster, error) {
	ev, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return Roster{}, notFound(err)
	}

	active, err := e.store.ListActiveByEvent(ctx, eventID)
	if err != nil {
		return Roster{}, err
	}

	out := Roster{Event: ev}
	var waitlisted []model.RSVP
	for i := range active {
		switch active[i].Status {
		case model.StatusConfirmed:
			out.Confirmed = append(out.Confirmed, active[i])
		case model.StatusWaitlisted:
			waitlisted = append(waitlisted, active[i])
		case model.StatusCancelled, model.StatusNoShow:
			// Terminal; never returned by the active listing.
		}
	}

	// Confirmed members see literal submission order; effective time is
	// internal to placement and promotion.
	sort.Slice(out.Confirmed, func(i, j int) bool {
		a, b := out.Confirmed[i], out.Confirmed[j]
		if !a.RSVPTime.Equal(b.RSVPTime) {
			return a.RSVPTime.Before(b.RSVPTime)
		}
		return a.ID < b.ID
	})

	sort.Slice(waitlisted, func(i, j int) bool {
		return rank.Less(&waitlisted[i], &waitlisted[j])
	})
	for i := range waitlisted {
		out.Waitlist = append(out.Waitlist, WaitlistEntry{Position: i + 1, RSVP: waitlisted[i]})
	}

	return out, nil
}
