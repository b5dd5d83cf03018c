package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ApplicationPatch is an inbound sync payload split into the columns we store
// and everything else. A nil field was not sent (or sent as null) and is left
// alone on update.
type ApplicationPatch struct {
	ApplicationID   string
	Track           Track
	ApplicationType *string
	CustomerID      *string
	Status          *string
	CurrentStep     *string
	StartTime       *Date
	AgentData       json.RawMessage
	StepHistory     json.RawMessage
	AuditTrail      json.RawMessage
	ReviewReason    *string
	ClaimRecordID   *int

	// Extra holds keys that map to no column. They are reported and dropped.
	Extra map[string]json.RawMessage
}

// Field aliases resolve to the first name listed; when both spellings are sent
// the first one wins.
var patchAliases = map[string][]string{
	"customerId":      {"customerId", "customer_id"},
	"claim_record_id": {"claim_record_id", "claimRecordId"},
}

var patchColumns = map[string]bool{
	"applicationId":   true,
	"applicationtype": true,
	"customerId":      true,
	"customer_id":     true,
	"status":          true,
	"currentStep":     true,
	"startTime":       true,
	"agentData":       true,
	"stepHistory":     true,
	"auditTrail":      true,
	"reviewReason":    true,
	"claim_record_id": true,
	"claimRecordId":   true,
}

// DecodeApplicationPatch splits a JSON object into an ApplicationPatch.
func DecodeApplicationPatch(fields map[string]json.RawMessage) (*ApplicationPatch, error) {
	p := &ApplicationPatch{Extra: map[string]json.RawMessage{}}

	for key, raw := range fields {
		if !patchColumns[key] {
			p.Extra[key] = raw
		}
	}

	var err error
	if p.ApplicationType, err = stringField(fields, "applicationtype"); err != nil {
		return nil, err
	}
	if id, err := stringField(fields, "applicationId"); err != nil {
		return nil, err
	} else if id != nil {
		p.ApplicationID = *id
	}
	if p.ApplicationType != nil {
		p.Track = ParseTrack(*p.ApplicationType)
	}

	if p.CustomerID, err = looseStringField(fields, patchAliases["customerId"]...); err != nil {
		return nil, err
	}
	if p.Status, err = stringField(fields, "status"); err != nil {
		return nil, err
	}
	if p.CurrentStep, err = stringField(fields, "currentStep"); err != nil {
		return nil, err
	}
	if p.ReviewReason, err = stringField(fields, "reviewReason"); err != nil {
		return nil, err
	}

	if start, err := stringField(fields, "startTime"); err != nil {
		return nil, err
	} else if start != nil {
		d, err := ParseDate(*start)
		if err != nil {
			return nil, fmt.Errorf("startTime: %w", err)
		}
		p.StartTime = &d
	}

	p.AgentData = rawField(fields, "agentData")
	p.StepHistory = rawField(fields, "stepHistory")
	p.AuditTrail = rawField(fields, "auditTrail")

	if claimRef, err := looseStringField(fields, patchAliases["claim_record_id"]...); err != nil {
		return nil, err
	} else if claimRef != nil {
		n, err := strconv.Atoi(*claimRef)
		if err != nil {
			return nil, fmt.Errorf("claim_record_id must be an integer")
		}
		p.ClaimRecordID = &n
	}

	return p, nil
}

// ExtraKeys lists the dropped keys in sorted order.
func (p *ApplicationPatch) ExtraKeys() []string {
	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyTo copies every set field onto app.
func (p *ApplicationPatch) ApplyTo(app *Application) {
	app.ApplicationID = p.ApplicationID
	app.Track = p.Track
	if p.ApplicationType != nil {
		app.ApplicationType = p.ApplicationType
	}
	if p.CustomerID != nil {
		app.CustomerID = p.CustomerID
	}
	if p.Status != nil {
		app.Status = p.Status
	}
	if p.CurrentStep != nil {
		app.CurrentStep = p.CurrentStep
	}
	if p.StartTime != nil {
		app.StartTime = p.StartTime
	}
	if p.AgentData != nil {
		app.AgentData = p.AgentData
	}
	if p.StepHistory != nil {
		app.StepHistory = p.StepHistory
	}
	if p.AuditTrail != nil {
		app.AuditTrail = p.AuditTrail
	}
	if p.ReviewReason != nil {
		app.ReviewReason = p.ReviewReason
	}
	if p.ClaimRecordID != nil && p.Track == TrackClaim {
		app.ClaimRecordID = p.ClaimRecordID
	}
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func rawField(fields map[string]json.RawMessage, key string) json.RawMessage {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}
	return raw
}

func stringField(fields map[string]json.RawMessage, key string) (*string, error) {
	raw := rawField(fields, key)
	if raw == nil {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s must be a string", key)
	}
	return &s, nil
}

// looseStringField accepts a string or a number under the first present key.
func looseStringField(fields map[string]json.RawMessage, keys ...string) (*string, error) {
	for _, key := range keys {
		raw := rawField(fields, key)
		if raw == nil {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return &s, nil
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%s must be a string or a number", key)
		}
		s = n.String()
		return &s, nil
	}
	return nil, nil
}
