package loadtest

import "time"

// Config holds configuration for the admission load test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumUsers   int           // Number of members to create
	NumEvents  int           // Number of events to create
	SeatCap    int           // Max attendees per event
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	CancelRate float64       // Fraction of confirmed RSVPs to cancel afterwards
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// User mirrors the service's user payload.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	SocialScore float64 `json:"social_score"`
}

// Event mirrors the service's event payload.
type Event struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	MaxAttendees int    `json:"max_attendees"`
}

// RSVP mirrors the service's RSVP payload.
type RSVP struct {
	ID                string  `json:"id"`
	EventID           string  `json:"event_id"`
	UserID            string  `json:"user_id"`
	Status            string  `json:"status"`
	RSVPTime          string  `json:"rsvp_time"`
	EffectiveTime     string  `json:"effective_time"`
	SocialScoreAtRSVP float64 `json:"social_score_at_rsvp"`
}

// WaitlistEntry is one waitlisted RSVP with its queue position.
type WaitlistEntry struct {
	Position int  `json:"position"`
	RSVP     RSVP `json:"rsvp"`
}

// Roster mirrors the service's roster payload.
type Roster struct {
	Event     Event           `json:"event"`
	Confirmed []RSVP          `json:"confirmed"`
	Waitlist  []WaitlistEntry `json:"waitlist"`
}

// ErrorResponse is the service's error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds test statistics
type Stats struct {
	UsersCreated    int
	EventsCreated   int
	ScoresBoosted   int
	RSVPsSubmitted  int
	RSVPsConfirmed  int
	RSVPsWaitlisted int
	RSVPsDuplicate  int
	RSVPsFailed     int
	RSVPsCancelled  int
	RostersChecked  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
