package getapplication

import (
	"encoding/json"
	"hash/fnv"
	"strconv"
	"time"

	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/storage/docstore"
)

// PseudoID maps an external id onto a stable display id in [0, 1000000).
// Different ids may collide.
func PseudoID(applicationID string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(applicationID))
	return int(h.Sum64() % 1_000_000)
}

// StepForStatus infers the current step of a claim from its status.
func StepForStatus(status string) string {
	switch status {
	case "approved", "rejected":
		return StepFinalDecision
	default:
		return StepIngest
	}
}

// Repair builds an application view from a claim document. now is used for
// lastUpdated and as the start time when created_at is missing or unreadable.
func Repair(applicationID string, doc docstore.Document, now time.Time) (*models.Application, error) {
	status := defaultStatus
	if raw, ok := doc["status"]; ok && !isNull(raw) {
		status = doc.String("status")
	}

	agentData, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	stepHistory := json.RawMessage(`[]`)
	if raw, ok := doc["step_history"]; ok && !isNull(raw) {
		stepHistory = raw
	}

	today := models.NewDate(now)
	start := startTime(doc, now)
	claimType := "claim"

	return &models.Application{
		ID:              PseudoID(applicationID),
		Track:           models.TrackClaim,
		ApplicationID:   applicationID,
		ApplicationType: &claimType,
		CustomerID:      customerID(doc),
		Status:          &status,
		CurrentStep:     models.StringPtr(StepForStatus(status)),
		StartTime:       &start,
		LastUpdated:     &today,
		AgentData:       agentData,
		StepHistory:     stepHistory,
		AuditTrail:      json.RawMessage(`[]`),
	}, nil
}

func customerID(doc docstore.Document) *string {
	for _, key := range []string{"user_id", "userId"} {
		raw, ok := doc[key]
		if !ok || isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s == "" {
				continue
			}
			return &s
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			v := n.String()
			return &v
		}
	}
	return nil
}

// startTime reads created_at as an ISO-8601 string or epoch milliseconds.
func startTime(doc docstore.Document, now time.Time) models.Date {
	raw, ok := doc["created_at"]
	if !ok || isNull(raw) {
		return models.NewDate(now)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if d, err := models.ParseDate(s); err == nil {
			return d
		}
		return models.NewDate(now)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if ms, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return models.NewDate(time.UnixMilli(ms).UTC())
		}
	}
	return models.NewDate(now)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
