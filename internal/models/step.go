package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	StepStatusPending    = "pending"
	StepStatusCompleted  = "completed"
	StepCompletedByHuman = "human"
)

// Step is one entry of a step history. Keys we do not manage are kept in
// Extra and written back unchanged.
type Step struct {
	ID               json.RawMessage
	Name             *string
	Status           *string
	CompletedBy      *string
	CompletedAt      *string
	AdminNotes       *string
	AdminID          *string
	CompletionMethod *string

	Extra map[string]json.RawMessage
}

var stepStringFields = []string{
	"name", "status", "completed_by", "completed_at", "admin_notes", "admin_id", "completion_method",
}

func (s *Step) stringFieldPtr(key string) **string {
	switch key {
	case "name":
		return &s.Name
	case "status":
		return &s.Status
	case "completed_by":
		return &s.CompletedBy
	case "completed_at":
		return &s.CompletedAt
	case "admin_notes":
		return &s.AdminNotes
	case "admin_id":
		return &s.AdminID
	case "completion_method":
		return &s.CompletionMethod
	}
	return nil
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("step must be an object: %w", err)
	}

	*s = Step{Extra: map[string]json.RawMessage{}}
	for key, raw := range fields {
		if key == "id" {
			s.ID = raw
			continue
		}
		if target := s.stringFieldPtr(key); target != nil {
			var v string
			if err := json.Unmarshal(raw, &v); err == nil {
				*target = &v
				continue
			}
		}
		// non-string values of managed keys are kept verbatim
		s.Extra[key] = raw
	}
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+8)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.ID != nil {
		out["id"] = s.ID
	}
	for _, key := range stepStringFields {
		ptr := *s.stringFieldPtr(key)
		if ptr == nil {
			continue
		}
		raw, err := json.Marshal(*ptr)
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}
	return json.Marshal(out)
}

// SetExtra stores an arbitrary value under key.
func (s *Step) SetExtra(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.Extra == nil {
		s.Extra = map[string]json.RawMessage{}
	}
	s.Extra[key] = raw
	return nil
}

// Matches reports whether the step has the numeric id or the exact name. A
// null id never matches.
func (s *Step) Matches(id int, name string) bool {
	if s.ID != nil && !isNull(s.ID) {
		var n float64
		if err := json.Unmarshal(s.ID, &n); err == nil && n == float64(id) {
			return true
		}
	}
	return s.Name != nil && *s.Name == name
}

func (s *Step) StatusValue() string {
	if s.Status == nil {
		return ""
	}
	return *s.Status
}

// IsOpen reports whether the step still has work to do.
func (s *Step) IsOpen() bool {
	switch s.StatusValue() {
	case "pending", "in_progress", "in-progress":
		return true
	}
	return false
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// DecodeSteps parses a step history. It tolerates null and a JSON string that
// itself contains the encoded list.
func DecodeSteps(raw json.RawMessage) ([]Step, error) {
	raw, err := unwrapEncoded(raw)
	if err != nil || raw == nil {
		return nil, err
	}
	var steps []Step
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("step history must be a list: %w", err)
	}
	return steps, nil
}

// DecodeAuditTrail parses the audit trail into its raw entries.
func DecodeAuditTrail(raw json.RawMessage) ([]json.RawMessage, error) {
	raw, err := unwrapEncoded(raw)
	if err != nil || raw == nil {
		return nil, err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("audit trail must be a list: %w", err)
	}
	return entries, nil
}

// EmbeddedStepHistory returns agentData.stepHistory, or nil when absent.
func EmbeddedStepHistory(agentData json.RawMessage) (json.RawMessage, error) {
	obj, err := agentDataObject(agentData)
	if err != nil || obj == nil {
		return nil, err
	}
	raw, ok := obj["stepHistory"]
	if !ok || isNull(raw) {
		return nil, nil
	}
	return raw, nil
}

// EnsureEmbeddedStepHistory sets agentData.stepHistory when the key is
// missing and returns agentData unchanged otherwise. A null agentData becomes
// an object.
func EnsureEmbeddedStepHistory(agentData json.RawMessage, steps []Step) (json.RawMessage, error) {
	obj, err := agentDataObject(agentData)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	if _, ok := obj["stepHistory"]; ok {
		return agentData, nil
	}
	encoded, err := json.Marshal(nonNilSteps(steps))
	if err != nil {
		return nil, err
	}
	obj["stepHistory"] = encoded
	return json.Marshal(obj)
}

// HasSteps reports whether raw holds a non-empty step list.
func HasSteps(raw json.RawMessage) bool {
	steps, err := DecodeSteps(raw)
	return err == nil && len(steps) > 0
}

func agentDataObject(agentData json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(agentData) {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(agentData, &obj); err != nil {
		return nil, fmt.Errorf("agentData must be an object: %w", err)
	}
	return obj, nil
}

func unwrapEncoded(raw json.RawMessage) (json.RawMessage, error) {
	if isNull(raw) {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] != '"' {
		return trimmed, nil
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, err
	}
	if inner == "" {
		return nil, nil
	}
	return json.RawMessage(inner), nil
}

func nonNilSteps(steps []Step) []Step {
	if steps == nil {
		return []Step{}
	}
	return steps
}

// EncodeSteps marshals a step history, writing [] for an empty one.
func EncodeSteps(steps []Step) (json.RawMessage, error) {
	return json.Marshal(nonNilSteps(steps))
}

// EncodeAuditTrail marshals audit entries, writing [] for an empty trail.
func EncodeAuditTrail(entries []json.RawMessage) (json.RawMessage, error) {
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return json.Marshal(entries)
}

// SetEmbeddedStepHistory overwrites agentData.stepHistory.
func SetEmbeddedStepHistory(agentData json.RawMessage, steps []Step) (json.RawMessage, error) {
	obj, err := agentDataObject(agentData)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	encoded, err := json.Marshal(nonNilSteps(steps))
	if err != nil {
		return nil, err
	}
	obj["stepHistory"] = encoded
	return json.Marshal(obj)
}
