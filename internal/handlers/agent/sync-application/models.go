package syncapplication

import "encoding/json"

// Input is the raw sync body. Any keys are accepted; unknown ones are dropped.
type Input struct {
	Payload json.RawMessage
}

type Output struct {
	Status string `json:"status"`
	Action string `json:"action"`
	ID     string `json:"id"`
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// payloadSchema checks the shape of the fields we store. Extra keys pass.
const payloadSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["applicationId"],
	"properties": {
		"applicationId":   {"type": "string", "minLength": 1},
		"applicationtype": {"type": ["string", "null"]},
		"status":          {"type": ["string", "null"]},
		"currentStep":     {"type": ["string", "null"]},
		"reviewReason":    {"type": ["string", "null"]},
		"startTime":       {"type": ["string", "null"]},
		"customerId":      {"type": ["string", "number", "null"]},
		"customer_id":     {"type": ["string", "number", "null"]},
		"agentData":       {"type": ["object", "null"]},
		"stepHistory":     {"type": ["array", "string", "null"]},
		"auditTrail":      {"type": ["array", "string", "null"]},
		"claim_record_id": {"type": ["integer", "string", "null"]},
		"claimRecordId":   {"type": ["integer", "string", "null"]}
	}
}`
