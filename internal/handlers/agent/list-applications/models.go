package listapplications

import "insurance-backoffice/internal/models"

// Input mirrors the query string. Type "claim" lists the claim table; any
// other non-empty value filters the policy table on applicationtype.
type Input struct {
	Type   string
	Status string
}

type Output struct {
	Applications []*models.Application
}
