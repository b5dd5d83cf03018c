package createclaimapplication

import "encoding/json"

// Input is a claim intake record in whatever shape the client sends. Only
// the keys named below are interpreted; everything else is stored as given.
type Input struct {
	Fields map[string]json.RawMessage
}

type Output struct {
	ID string `json:"id"`
}

// claimRequest is the optional nested "claim" object that asks for a master
// claim row.
type claimRequest struct {
	Amount *float64 `json:"amount"`
	Status *string  `json:"status"`
}

const (
	initialStatus = "Submitted"
	initialStep   = "ingest"
)
