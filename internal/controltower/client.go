// Package controltower syncs trial pipeline and meeting state to Control Tower.
package controltower

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"activation_backend/platform/config"
	"activation_backend/platform/logger"
)

const headerIdempotencyKey = "Idempotency-Key"

// PipelineStatusUpdate is one committed pipeline transition.
type PipelineStatusUpdate struct {
	IdempotencyKey  string    `json:"-"`
	JCCUserID       string    `json:"-"`
	TrialPipelineID string    `json:"trialPipelineId"`
	Status          string    `json:"status"`
	KillReason      string    `json:"killReason,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// MeetingUpdate is the current state of an activation meeting.
type MeetingUpdate struct {
	IdempotencyKey string    `json:"-"`
	JCCUserID      string    `json:"-"`
	MeetingID      string    `json:"meetingId"`
	Status         string    `json:"status"`
	StartAt        time.Time `json:"startAt"`
	EndAt          time.Time `json:"endAt"`
	Timezone       string    `json:"timezone"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type Client struct {
	baseURL string
	apiKey  string
	mapping *Mapping
	http    *http.Client
	log     *logger.Logger
}

// NewClient returns nil when Control Tower is not configured. A nil client
// drops every update.
func NewClient(cfg config.ControlTowerConfig, log *logger.Logger) (*Client, error) {
	if !cfg.IsControlTowerEnabled() {
		return nil, nil
	}
	mapping, err := LoadMapping()
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.GetControlTowerURL(), "/"),
		apiKey:  cfg.GetControlTowerAPIKey(),
		mapping: mapping,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}, nil
}

// SyncPipelineStatus pushes a pipeline transition for the correlated trial user.
func (c *Client) SyncPipelineStatus(ctx context.Context, u PipelineStatusUpdate) error {
	if c == nil {
		return nil
	}
	status, err := c.mapping.Status(u.Status)
	if err != nil {
		return err
	}
	u.Status = status
	u.KillReason = c.mapping.KillReason(u.KillReason)
	return c.post(ctx, u.JCCUserID, "status", u.IdempotencyKey, u)
}

// SyncMeeting pushes the meeting booked for the correlated trial user.
func (c *Client) SyncMeeting(ctx context.Context, u MeetingUpdate) error {
	if c == nil {
		return nil
	}
	status, err := c.mapping.MeetingStatus(u.Status)
	if err != nil {
		return err
	}
	u.Status = status
	return c.post(ctx, u.JCCUserID, "activation-meeting", u.IdempotencyKey, u)
}

func (c *Client) post(ctx context.Context, jccUserID, resource, idempotencyKey string, payload any) error {
	if strings.TrimSpace(jccUserID) == "" {
		return fmt.Errorf("control tower sync requires a jcc user id")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal control tower payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/trial-users/%s/%s", c.baseURL, url.PathEscape(jccUserID), resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("control tower request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("control tower returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("control tower synced", "resource", resource, "jcc_user_id", jccUserID)
	return nil
}
