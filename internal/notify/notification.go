// Package notify delivers best-effort side effects (agent webhooks and claim
// status events) from a queue in the background, outside the request path.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAgentApprove Kind = "agent_approve"
	KindAgentResume  Kind = "agent_resume"
	KindClaimStatus  Kind = "claim_status"
)

// Notification is one queued side effect. It is stored as JSON so it can sit
// in Redis between enqueue and delivery.
type Notification struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Target     string          `json:"target,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	TimeoutMs  int             `json:"timeoutMs,omitempty"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

func (n *Notification) Timeout() time.Duration {
	return time.Duration(n.TimeoutMs) * time.Millisecond
}

func newNotification(kind Kind, target string, payload interface{}, timeout time.Duration) (*Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return &Notification{
		ID:         uuid.New().String(),
		Kind:       kind,
		Target:     target,
		Payload:    raw,
		TimeoutMs:  int(timeout / time.Millisecond),
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// ApprovePayload is what the agent's /approve endpoint expects.
type ApprovePayload struct {
	ApplicationID string  `json:"application_id"`
	Action        string  `json:"action"`
	OverrideNotes *string `json:"override_notes"`
}

// NewAgentApprove resumes an agent after a human review decision.
func NewAgentApprove(baseURL string, payload ApprovePayload, timeout time.Duration) (*Notification, error) {
	return newNotification(KindAgentApprove, baseURL+"/approve", payload, timeout)
}

// ResumePayload is what the agent's /resume endpoint expects.
type ResumePayload struct {
	ApplicationID string `json:"application_id"`
	CompletedStep string `json:"completed_step"`
	Action        string `json:"action"`
	Notes         string `json:"notes"`
	StepID        int    `json:"step_id"`
}

// NewAgentResume tells an agent a step was completed by hand.
func NewAgentResume(baseURL string, payload ResumePayload, timeout time.Duration) (*Notification, error) {
	return newNotification(KindAgentResume, baseURL+"/resume", payload, timeout)
}

// ClaimStatusEvent is published whenever a master claim status changes.
type ClaimStatusEvent struct {
	ClaimID       int    `json:"claim_id"`
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
	Source        string `json:"source"`
}

func NewClaimStatus(event ClaimStatusEvent) (*Notification, error) {
	return newNotification(KindClaimStatus, "", event, 0)
}

// Enqueuer hands a notification to the background dispatcher.
type Enqueuer interface {
	Enqueue(ctx context.Context, n *Notification) error
}

// Discard drops everything. Used where no dispatcher is running.
type Discard struct{}

func (Discard) Enqueue(context.Context, *Notification) error { return nil }
