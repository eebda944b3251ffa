// Package api holds the outbound clients for the platform collaborators:
// identity verification, the participant directory, and notification
// dispatch. The engine treats all three as black boxes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"matchplay-engine/internal/config"
	"matchplay-engine/internal/constants"
	"matchplay-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IdentityClient struct {
	baseURL string
	client  *fasthttp.Client
}

func NewIdentityClient(cfg *config.Config) *IdentityClient {
	return &IdentityClient{
		baseURL: cfg.IdentityBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type verifyResponse struct {
	ParticipantID string `json:"participant_id"`
}

// Verify exchanges a bearer token for the participant id it represents.
// The engine never issues or stores credentials.
func (c *IdentityClient) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/v1/verify")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bearer "+token)

	if err := do(ctx, c.client, req, resp); err != nil {
		return uuid.Nil, fmt.Errorf("identity request failed: %w", err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusUnauthorized, fasthttp.StatusForbidden:
		return uuid.Nil, fmt.Errorf("token rejected: %w", domain.ErrUnauthorized)
	default:
		return uuid.Nil, fmt.Errorf("identity service error: %d", resp.StatusCode())
	}

	var body verifyResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	id, err := uuid.Parse(body.ParticipantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity returned malformed participant id: %w", err)
	}
	return id, nil
}

func do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return client.DoDeadline(req, resp, deadline)
	}
	return client.Do(req, resp)
}
