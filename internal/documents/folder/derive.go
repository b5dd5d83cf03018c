// Package folder maps documents onto object store key prefixes and reads
// those prefixes back out of stored addresses.
package folder

import (
	"fmt"
	"sort"

	"insurance-backoffice/pkg/registry"
)

const (
	TypeKYC            = "kyc_document"
	TypeIDCard         = "id_card"
	TypePANCard        = "pan_card"
	TypePolicyDocument = "policy_document"
	TypeClaimDocument  = "claim_document"
	TypeOther          = "other"
)

var typeFolders = map[string]string{
	TypeKYC:            "kyc",
	TypeIDCard:         "id_cards",
	TypePANCard:        "pan_cards",
	TypePolicyDocument: "policies",
	TypeClaimDocument:  "claims",
	TypeOther:          "other",
}

// FolderForType returns the per-user folder for a document type. Unknown
// types land in "other".
func FolderForType(documentType string) string {
	if f, ok := typeFolders[documentType]; ok {
		return f
	}
	return "other"
}

func IsAllowedDocumentType(documentType string) bool {
	_, ok := typeFolders[documentType]
	return ok
}

// AllowedDocumentTypes returns the accepted document types, sorted.
func AllowedDocumentTypes() []string {
	out := make([]string, 0, len(typeFolders))
	for t := range typeFolders {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Derive returns the storage key prefix for a document.
//
// Non-claim documents go to users/{userID}/{typeFolder}. Claim documents go to
// claims/{claimID} or, before a claim exists, claims/pending/{userID}. A
// category adds one normalized segment; without one the legacy shape is kept.
// A nil or zero claimID counts as absent. A category that normalizes to ""
// still produces a trailing empty segment.
func Derive(userID int, documentType string, claimID *int, category *string) string {
	if documentType != TypeClaimDocument {
		return fmt.Sprintf("users/%d/%s", userID, FolderForType(documentType))
	}

	base := fmt.Sprintf("claims/pending/%d", userID)
	if claimID != nil && *claimID != 0 {
		base = fmt.Sprintf("claims/%d", *claimID)
	}

	if category == nil || *category == "" {
		return base
	}
	return base + "/" + registry.Normalize(*category)
}
