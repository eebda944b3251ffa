package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"matchplay-engine/internal/config"
	"matchplay-engine/internal/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

type EventType string

const (
	EventTournamentStarted EventType = "tournament_started"
	EventMatchCreated      EventType = "match_created"
	EventChallengeIssued   EventType = "challenge_issued"
	EventMatchCompleted    EventType = "match_completed"
	EventMatchDisputed     EventType = "match_disputed"
	EventMatchExpired      EventType = "match_expired"
	EventDisputeResolved   EventType = "dispute_resolved"
)

type Event struct {
	Type        EventType         `json:"type"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	Context     map[string]string `json:"context,omitempty"`
}

// NotifyClient delivers events fire-and-forget: failures are logged and
// never surface to the operation that produced the event.
type NotifyClient struct {
	baseURL string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewNotifyClient(cfg *config.Config, logger zerolog.Logger) *NotifyClient {
	return &NotifyClient{
		baseURL: cfg.NotifyBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.NotifyTimeout,
			WriteTimeout:        constants.NotifyTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *NotifyClient) Dispatch(ctx context.Context, events ...Event) {
	if c.baseURL == "" {
		c.logger.Debug().Int("events", len(events)).Msg("notification dispatch not configured, dropping events")
		return
	}

	for _, ev := range events {
		if err := c.send(ctx, ev); err != nil {
			c.logger.Warn().
				Err(err).
				Str("event_type", string(ev.Type)).
				Str("recipient_id", ev.RecipientID.String()).
				Msg("notification dispatch failed")
		}
	}
}

func (c *NotifyClient) send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/v1/events")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := do(ctx, c.client, req, resp); err != nil {
		return err
	}
	if resp.StatusCode() >= fasthttp.StatusBadRequest {
		return &dispatchError{status: resp.StatusCode()}
	}
	return nil
}

type dispatchError struct {
	status int
}

func (e *dispatchError) Error() string {
	return fmt.Sprintf("notification service returned %d", e.status)
}
