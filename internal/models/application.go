package models

import "encoding/json"

// Application is a row of application_processes or claim_applications.
type Application struct {
	ID              int             `json:"id"`
	Track           Track           `json:"-"`
	ApplicationID   string          `json:"applicationId"`
	ApplicationType *string         `json:"applicationtype"`
	CustomerID      *string         `json:"customerId"`
	Status          *string         `json:"status"`
	CurrentStep     *string         `json:"currentStep"`
	StartTime       *Date           `json:"startTime"`
	LastUpdated     *Date           `json:"lastUpdated"`
	AgentData       json.RawMessage `json:"agentData"`
	StepHistory     json.RawMessage `json:"stepHistory"`
	AuditTrail      json.RawMessage `json:"auditTrail"`
	ReviewReason    *string         `json:"reviewReason"`
	ClaimRecordID   *int            `json:"claim_record_id,omitempty"`
}

// StatusValue returns the status or "" when unset.
func (a *Application) StatusValue() string {
	if a.Status == nil {
		return ""
	}
	return *a.Status
}

func (a *Application) CurrentStepValue() string {
	if a.CurrentStep == nil {
		return ""
	}
	return *a.CurrentStep
}

// Claim is the master claim record. Rows are created from claim intake and
// afterwards only their status changes.
type Claim struct {
	ID          int     `json:"id"`
	UserID      *int    `json:"userId"`
	PolicyID    *int    `json:"policyId"`
	ClaimType   *string `json:"claimType"`
	Amount      float64 `json:"amount"`
	Status      *string `json:"status"`
	LastUpdated *Date   `json:"lastUpdated"`
}

// Steps returns the step history. The stepHistory column wins when it holds
// any steps; otherwise agentData.stepHistory is used and embedded is true.
func (a *Application) Steps() (steps []Step, embedded bool, err error) {
	steps, err = DecodeSteps(a.StepHistory)
	if err != nil {
		return nil, false, err
	}
	if len(steps) > 0 {
		return steps, false, nil
	}

	raw, err := EmbeddedStepHistory(a.AgentData)
	if err != nil || raw == nil {
		return nil, false, err
	}
	steps, err = DecodeSteps(raw)
	if err != nil {
		return nil, false, err
	}
	return steps, true, nil
}
