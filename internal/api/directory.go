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

// Profile is the read-only directory record used to enrich responses.
// It never drives control flow.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	SkillTier   string    `json:"skill_tier"`
}

type DirectoryClient struct {
	baseURL string
	client  *fasthttp.Client
}

func NewDirectoryClient(cfg *config.Config) *DirectoryClient {
	return &DirectoryClient{
		baseURL: cfg.DirectoryBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Configured reports whether a directory endpoint was provided; callers
// skip enrichment entirely when it was not.
func (c *DirectoryClient) Configured() bool {
	return c.baseURL != ""
}

func (c *DirectoryClient) GetProfile(ctx context.Context, participantID uuid.UUID) (*Profile, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/v1/participants/%s", c.baseURL, participantID))
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := do(ctx, c.client, req, resp); err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("participant %s: %w", participantID, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("directory service error: %d", resp.StatusCode())
	}

	var profile Profile
	if err := json.Unmarshal(resp.Body(), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	return &profile, nil
}
