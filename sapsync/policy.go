package sapsync

import "github.com/mmdatafocus/portal_backend/models"

type Decision int

const (
	// Overwrite upserts the external record over the local one, tagged sap/synced.
	Overwrite Decision = iota
	// Keep leaves the local record untouched.
	Keep
)

func (d Decision) String() string {
	if d == Keep {
		return "keep"
	}
	return "overwrite"
}

// ConflictPolicy decides what happens to a changed external record. existing
// is nil when no live local record has the same natural key.
type ConflictPolicy func(incoming ExternalRecord, existing LocalRecord) Decision

// SAPWins treats SAP as the system of record: local rows are always
// overwritten, including ones authored in the portal.
func SAPWins(ExternalRecord, LocalRecord) Decision {
	return Overwrite
}

// PreservePortalEdits never overwrites a record whose source is the portal.
func PreservePortalEdits(_ ExternalRecord, existing LocalRecord) Decision {
	if existing != nil && existing.Origin() == models.RecordSourcePortal {
		return Keep
	}
	return Overwrite
}

// PolicyByName maps a configuration value to a policy. Unknown names get SAPWins.
func PolicyByName(name string) ConflictPolicy {
	switch name {
	case "preserve-portal-edits":
		return PreservePortalEdits
	default:
		return SAPWins
	}
}
