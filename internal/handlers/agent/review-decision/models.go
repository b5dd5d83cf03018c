package reviewdecision

type Input struct {
	ApplicationID string  `json:"application_id"`
	Action        string  `json:"action"`
	Reason        *string `json:"reason"`
}

type Output struct {
	Message       string `json:"message"`
	ApplicationID string `json:"application_id"`
}

// statusForAction is the status written for each review action.
var statusForAction = map[string]string{
	"approve":      "approved",
	"reject":       "rejected",
	"request_docs": "ask_for_document",
	"escalate":     "escalate_to_senior",
}
