package getapplication

import "insurance-backoffice/internal/models"

type Input struct {
	ApplicationID string
}

// Output is the application view. Source says where it was found.
type Output struct {
	Application *models.Application
	Source      string
}

const (
	SourcePolicyTable = "application_processes"
	SourceClaimTable  = "claim_applications"
	SourceDocstore    = "docstore"
)

// Step names inferred for records rebuilt from the document store.
const (
	StepIngest        = "ingest"
	StepFinalDecision = "final_decision"
	defaultStatus     = "new_claim"
)
