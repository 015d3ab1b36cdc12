package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP status code constants.
const (
	statusOK       = 200
	statusCreated  = 201
	statusConflict = 409
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	var buf io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		buf = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// decodeResponse reads the body and decodes it into v when the status
// matches, otherwise it returns the service's error envelope.
func decodeResponse(resp *http.Response, wantStatus int, v interface{}) error {
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != wantStatus {
		var envelope ErrorResponse
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Code != "" {
			return fmt.Errorf("status %d: %s: %s", resp.StatusCode, envelope.Code, envelope.Message)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(body, v)
}

// createUser registers one member through the API.
func createUser(ctx context.Context, client *HTTPClient, baseURL, displayName string) (User, error) {
	resp, err := client.Post(ctx, baseURL+"/users", map[string]string{"display_name": displayName})
	if err != nil {
		return User{}, err
	}
	var u User
	if err := decodeResponse(resp, statusCreated, &u); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// createEvent registers one open event through the API.
func createEvent(ctx context.Context, client *HTTPClient, baseURL, title string, start, end time.Time, seatCap int) (Event, error) {
	resp, err := client.Post(ctx, baseURL+"/events", map[string]interface{}{
		"title":         title,
		"start_time":    start.Format(time.RFC3339),
		"end_time":      end.Format(time.RFC3339),
		"max_attendees": seatCap,
	})
	if err != nil {
		return Event{}, err
	}
	var ev Event
	if err := decodeResponse(resp, statusCreated, &ev); err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

// boostScore applies one manual adjustment so the crowd has uneven priority.
func boostScore(ctx context.Context, client *HTTPClient, baseURL, userID, reason string) error {
	resp, err := client.Post(ctx, baseURL+"/scores/adjust", map[string]interface{}{
		"user_id":   userID,
		"reason":    reason,
		"issued_by": "load-test",
	})
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, statusOK, nil); err != nil {
		return fmt.Errorf("adjust score: %w", err)
	}
	return nil
}

// submitRSVP places one RSVP and classifies the outcome.
func submitRSVP(ctx context.Context, client *HTTPClient, baseURL, eventID, userID string) (RSVP, string, error) {
	resp, err := client.Post(ctx, baseURL+"/rsvps", map[string]string{
		"event_id": eventID,
		"user_id":  userID,
	})
	if err != nil {
		return RSVP{}, "failed", err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return RSVP{}, "failed", err
	}

	switch resp.StatusCode {
	case statusCreated:
		var r RSVP
		if err := json.Unmarshal(body, &r); err != nil {
			return RSVP{}, "failed", err
		}
		return r, r.Status, nil
	case statusConflict:
		var envelope ErrorResponse
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Code == "duplicate_rsvp" {
			return RSVP{}, "duplicate", nil
		}
		return RSVP{}, "failed", fmt.Errorf("conflict: %s", body)
	default:
		return RSVP{}, "failed", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// cancelRSVP withdraws one RSVP.
func cancelRSVP(ctx context.Context, client *HTTPClient, baseURL, rsvpID, actorID string) error {
	resp, err := client.Post(ctx, baseURL+"/rsvps/"+rsvpID+"/cancel", map[string]string{"actor_id": actorID})
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, statusOK, nil); err != nil {
		return fmt.Errorf("cancel rsvp: %w", err)
	}
	return nil
}

// fetchRoster reads one event's roster.
func fetchRoster(ctx context.Context, client *HTTPClient, baseURL, eventID string) (Roster, error) {
	resp, err := client.Get(ctx, baseURL+"/events/"+eventID+"/roster")
	if err != nil {
		return Roster{}, err
	}
	var roster Roster
	if err := decodeResponse(resp, statusOK, &roster); err != nil {
		return Roster{}, fmt.Errorf("fetch roster: %w", err)
	}
	return roster, nil
}
